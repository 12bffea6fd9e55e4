package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/veristake/veristake/src/ai/core"
	"github.com/veristake/veristake/src/webclient"
)

func init() {
	core.RegisterProvider("gemini", newClient)
}

type client struct {
	apiKey     string
	httpClient *http.Client
	defaults   core.Options
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("gemini: API key not configured")
	}
	return &client{
		apiKey:     cfg.GeminiKey,
		httpClient: webclient.NewDefault(120 * time.Second),
		defaults: core.Options{
			Model:           core.ValueOrDefault(cfg.Model, "gemini-2.5-flash"),
			Temperature:     core.OrFloat(cfg.Temperature, 0.15),
			MaxOutputTokens: core.OrInt(cfg.MaxOutputTokens, 900),
			SystemPrompt:    cfg.SystemPrompt,
		},
	}, nil
}

func (c *client) Generate(ctx context.Context, prompt string, opts core.Options) (string, error) {
	merged := c.merge(opts)

	generationConfig := map[string]interface{}{
		"temperature":     merged.Temperature,
		"maxOutputTokens": merged.MaxOutputTokens,
	}
	if merged.ExpectJSON {
		generationConfig["responseMimeType"] = "application/json"
	}

	parts := []map[string]string{{"text": prompt}}
	reqBody := map[string]interface{}{
		"contents":         []map[string]interface{}{{"role": "user", "parts": parts}},
		"generationConfig": generationConfig,
	}
	if merged.SystemPrompt != "" {
		reqBody["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]string{{"text": merged.SystemPrompt}},
		}
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		url.PathEscape(merged.Model), url.QueryEscape(c.apiKey),
	)

	bodyBytes, _ := json.Marshal(reqBody)
	_, body, err := webclient.DoWithRetry(ctx, 2, 2*time.Second, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(bodyBytes))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, b, fmt.Errorf("status %d", resp.StatusCode)
		}
		return resp.StatusCode, b, nil
	})
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

func (c *client) merge(opts core.Options) core.Options {
	out := c.defaults
	if opts.Model != "" {
		out.Model = opts.Model
	}
	if opts.Temperature != 0 {
		out.Temperature = opts.Temperature
	}
	if opts.MaxOutputTokens != 0 {
		out.MaxOutputTokens = opts.MaxOutputTokens
	}
	if opts.SystemPrompt != "" {
		out.SystemPrompt = opts.SystemPrompt
	}
	out.ExpectJSON = opts.ExpectJSON || c.defaults.ExpectJSON
	return out
}
