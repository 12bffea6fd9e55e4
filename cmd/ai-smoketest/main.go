package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	aicore "github.com/veristake/veristake/src/ai/core"
	_ "github.com/veristake/veristake/src/ai/providers"
)

var (
	providersFlag = flag.String("providers", "gemini", "Comma-separated provider list or 'all'")
	systemFlag    = flag.String("system", defaultSystemPrompt, "Override system prompt")
	modelFlag     = flag.String("model", "", "Override model name")
	promptFlag    = flag.String("prompt", defaultPrompt, "User prompt")
	timeoutFlag   = flag.Duration("timeout", 45*time.Second, "Per-provider timeout")
	tempFlag      = flag.Float64("temp", 0.15, "Completion temperature")
	jsonFlag      = flag.Bool("json", false, "Request a JSON object response")
	maxLenFlag    = flag.Int("max-bytes", 1200, "Maximum bytes of output to print per response (0=unlimited)")
)

var allProviders = []string{
	"gemini",
	"openai",
}

func main() {
	log.SetFlags(0)
	flag.Parse()

	providers := resolveProviders(*providersFlag)
	if len(providers) == 0 {
		log.Fatal("no providers specified")
	}

	for _, provider := range providers {
		if err := runProvider(provider); err != nil {
			log.Printf("[%s] ERROR: %v", provider, err)
		}
	}
}

func runProvider(provider string) error {
	cfg := aicore.FactoryConfig{
		Provider:     provider,
		SystemPrompt: *systemFlag,
		Model:        *modelFlag,
		Temperature:  *tempFlag,
		GeminiKey:    os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
	}

	client, err := aicore.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("client init: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	start := time.Now()
	reply, err := client.Generate(ctx, *promptFlag, aicore.Options{
		Model:        *modelFlag,
		SystemPrompt: *systemFlag,
		Temperature:  *tempFlag,
		ExpectJSON:   *jsonFlag,
	})
	if err != nil {
		return err
	}

	fmt.Printf("=== %s ===\n", provider)
	fmt.Printf("ok (%.1fs)\n%s\n", time.Since(start).Seconds(), truncate(reply, *maxLenFlag))
	return nil
}

func resolveProviders(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "all") {
		return append([]string{}, allProviders...)
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var out []string
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:limit]) + "...(truncated)"
}

const defaultPrompt = `Assess this claim and reply with a JSON object containing
aiScore (0-100) and reasoning: "The ISS completes roughly 16 orbits of Earth per day."`

const defaultSystemPrompt = "You are a concise fact-checking assistant used for internal operator testing."
