package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/veristake/veristake/src/ai/core"
)

// DefaultModelOrder is the fallback preference list, most capable first.
var DefaultModelOrder = []string{
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-1.5-pro",
}

// ErrNoProviderConfigured means verification cannot run at all: no AI client
// could be constructed from configuration. The heuristics could stand alone,
// but exposing a zero-AI mode is an explicit non-feature here.
var ErrNoProviderConfigured = errors.New("no AI provider configured")

// WeightPlan holds the four verification blend weights. Normalize scales the
// weights to sum to 1.
type WeightPlan struct {
	AI       float64
	Evidence float64
	UserCred float64
	Source   float64
}

// DefaultWeightPlan returns the standard blend.
func DefaultWeightPlan() WeightPlan {
	return WeightPlan{AI: 0.35, Evidence: 0.25, UserCred: 0.20, Source: 0.20}
}

func (w WeightPlan) Normalize() WeightPlan {
	sum := w.AI + w.Evidence + w.UserCred + w.Source
	if sum == 0 {
		sum = 1
	}
	return WeightPlan{
		AI:       w.AI / sum,
		Evidence: w.Evidence / sum,
		UserCred: w.UserCred / sum,
		Source:   w.Source / sum,
	}
}

// VoterCredibility is one voter's stake and badge tier, used for the
// user-credibility sub-score.
type VoterCredibility struct {
	Stake     float64
	BadgeTier string
}

// VerifyInput is everything the orchestrator needs about a claim.
type VerifyInput struct {
	Title    string
	URL      string
	Summary  string
	Evidence []EvidenceItem
	Voters   []VoterCredibility
	Plan     *WeightPlan // nil means DefaultWeightPlan
}

// ScoreOrigin tags where a sub-score came from.
type ScoreOrigin string

const (
	FromAI        ScoreOrigin = "ai"
	FromHeuristic ScoreOrigin = "heuristic"
)

// SubScore is a sub-score with its origin, selected once and then folded
// into the weighted sum.
type SubScore struct {
	Origin ScoreOrigin `json:"origin"`
	Value  float64     `json:"value"`
}

// Breakdown records the four sub-scores and the normalized weights used.
type Breakdown struct {
	AI       SubScore   `json:"ai"`
	Evidence SubScore   `json:"evidence"`
	UserCred SubScore   `json:"userCredibility"`
	Source   SubScore   `json:"source"`
	Weights  WeightPlan `json:"weights"`
	Notes    []string   `json:"notes,omitempty"`
}

// VerificationResult is the verdict the orchestrator produces.
type VerificationResult struct {
	Result      string // Truth | Fake
	FinalScore  int
	Reasoning   string
	Breakdown   Breakdown
	Sources     []string
	ModelUsed   string
	ModelsTried []string
	VerifiedAt  time.Time
}

// Verifier runs the multi-source verification pipeline: an ordered model
// fallback against one provider client, response repair and validation, and
// a heuristic blend for anything the model could not supply.
type Verifier struct {
	client  core.Client
	scorer  *EvidenceScorer
	models  []string
	timeout time.Duration
}

// NewVerifier wires a verifier. A nil client is a configuration error: the
// pipeline must at least attempt AI access once per configured model.
func NewVerifier(client core.Client, scorer *EvidenceScorer, models []string, perAttemptTimeout time.Duration) (*Verifier, error) {
	if client == nil {
		return nil, ErrNoProviderConfigured
	}
	if scorer == nil {
		scorer = NewEvidenceScorer(nil)
	}
	if len(models) == 0 {
		models = DefaultModelOrder
	}
	if perAttemptTimeout <= 0 {
		perAttemptTimeout = 45 * time.Second
	}
	return &Verifier{client: client, scorer: scorer, models: models, timeout: perAttemptTimeout}, nil
}

// llmVerdict is the JSON shape requested from the model.
type llmVerdict struct {
	EvidenceScore        *float64          `json:"evidenceScore"`
	UserCredibilityScore *float64          `json:"userCredibilityScore"`
	SourceScore          *float64          `json:"sourceScore"`
	AIMetaScore          *float64          `json:"aiMetaScore"`
	Notes                []string          `json:"notes"`
	PerEvidence          []llmEvidenceNote `json:"perEvidence"`
	AISources            []string          `json:"aiSources"`
}

type llmEvidenceNote struct {
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// Verify produces a verdict. Provider failures never abort the pipeline:
// every model in order gets one attempt, and heuristics cover whatever the
// models could not deliver.
func (v *Verifier) Verify(ctx context.Context, in VerifyInput) (*VerificationResult, error) {
	plan := DefaultWeightPlan()
	if in.Plan != nil {
		plan = *in.Plan
	}
	weights := plan.Normalize()

	uniqueURLs := dedupeURLs(in.Evidence)

	llm, modelUsed, tried := v.callModels(ctx, buildVerifyPrompt(in, uniqueURLs))

	breakdown := Breakdown{
		AI:       pickScore(llm, func(r *llmVerdict) *float64 { return r.AIMetaScore }, func() float64 { return 60 }),
		Evidence: pickScore(llm, func(r *llmVerdict) *float64 { return r.EvidenceScore }, func() float64 { return v.scorer.ScoreEvidence(in.Evidence) }),
		UserCred: pickScore(llm, func(r *llmVerdict) *float64 { return r.UserCredibilityScore }, func() float64 { return credibilityScore(in.Voters) }),
		Source:   pickScore(llm, func(r *llmVerdict) *float64 { return r.SourceScore }, func() float64 { return v.scorer.ScoreSourceReliability(in.URL, uniqueURLs) }),
		Weights:  weights,
	}
	if llm != nil {
		breakdown.Notes = llm.Notes
	}

	final := breakdown.AI.Value*weights.AI +
		breakdown.Evidence.Value*weights.Evidence +
		breakdown.UserCred.Value*weights.UserCred +
		breakdown.Source.Value*weights.Source
	rounded := int(math.Round(clamp100(final)))

	result := ResultFake
	if rounded >= 50 {
		result = ResultTruth
	}

	var aiSources []string
	if llm != nil {
		aiSources = llm.AISources
	}

	return &VerificationResult{
		Result:      result,
		FinalScore:  rounded,
		Reasoning:   reasoning(llm != nil, breakdown),
		Breakdown:   breakdown,
		Sources:     pickSources(weights.AI, uniqueURLs, aiSources),
		ModelUsed:   modelUsed,
		ModelsTried: tried,
		VerifiedAt:  time.Now().UTC(),
	}, nil
}

// callModels walks the model order; every failure mode (transport error,
// unparseable payload, invalid shape) falls through to the next candidate.
func (v *Verifier) callModels(ctx context.Context, prompt string) (*llmVerdict, string, []string) {
	tried := make([]string, 0, len(v.models))

	for _, model := range v.models {
		tried = append(tried, model)

		attemptCtx, cancel := context.WithTimeout(ctx, v.timeout)
		raw, err := v.client.Generate(attemptCtx, prompt, core.Options{
			Model:           model,
			Temperature:     0.15,
			MaxOutputTokens: 900,
			ExpectJSON:      true,
		})
		cancel()
		if err != nil {
			log.Printf("verify: model %s failed: %v", model, err)
			continue
		}

		var parsed llmVerdict
		if !repairUnmarshal(raw, &parsed) {
			log.Printf("verify: model %s returned unparseable payload", model)
			continue
		}
		if !validShape(&parsed) {
			log.Printf("verify: model %s returned invalid shape, falling through", model)
			continue
		}
		return &parsed, model, tried
	}
	return nil, "", tried
}

// validShape rejects results whose sub-scores are missing, non-finite, or
// out of [0,100]; an invalid result is a provider failure, never silently
// accepted.
func validShape(r *llmVerdict) bool {
	for _, s := range []*float64{r.EvidenceScore, r.UserCredibilityScore, r.SourceScore, r.AIMetaScore} {
		if s == nil || !valid100(*s) {
			return false
		}
	}
	return true
}

func valid100(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0) && n >= 0 && n <= 100
}

func pickScore(llm *llmVerdict, field func(*llmVerdict) *float64, heuristic func() float64) SubScore {
	if llm != nil {
		if val := field(llm); val != nil && valid100(*val) {
			return SubScore{Origin: FromAI, Value: clamp100(*val)}
		}
	}
	return SubScore{Origin: FromHeuristic, Value: clamp100(heuristic())}
}

// credibilityScore is the stake-weighted average of tier-derived weights
// (×100). Stakeless voters still count with unit weight.
func credibilityScore(voters []VoterCredibility) float64 {
	if len(voters) == 0 {
		return 50
	}
	var num, den float64
	for _, v := range voters {
		stake := v.Stake
		if stake <= 0 {
			stake = 1
		}
		num += stake * TierMultiplier(v.BadgeTier) * 100
		den += stake
	}
	if den == 0 {
		return 50
	}
	return clamp100(num / den)
}

// pickSources prefers AI-suggested URLs when the AI weight dominates the
// blend, otherwise evidence first; deduplicated, capped at 6.
func pickSources(aiWeight float64, evidenceURLs, aiSources []string) []string {
	preferAI := aiWeight >= 0.3 && aiWeight >= math.Max(0, 1-aiWeight)

	merged := make([]string, 0, len(evidenceURLs)+len(aiSources))
	seen := map[string]bool{}
	push := func(urls []string) {
		for _, u := range urls {
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			merged = append(merged, u)
		}
	}

	if preferAI && len(aiSources) > 0 {
		push(aiSources)
		push(evidenceURLs)
	} else {
		push(evidenceURLs)
		push(aiSources)
	}

	if len(merged) > 6 {
		merged = merged[:6]
	}
	return merged
}

func dedupeURLs(items []EvidenceItem) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.URL == "" || seen[it.URL] {
			continue
		}
		seen[it.URL] = true
		out = append(out, it.URL)
	}
	return out
}

func reasoning(fromAI bool, b Breakdown) string {
	if fromAI {
		return fmt.Sprintf(
			"AI analyzed evidence (%.0f), voter credibility (%.0f), and sources (%.0f). AI meta score: %.0f.",
			b.Evidence.Value, b.UserCred.Value, b.Source.Value, b.AI.Value,
		)
	}
	return "Heuristic decision based on evidence, voter credibility, and sources."
}

func buildVerifyPrompt(in VerifyInput, evidenceURLs []string) string {
	var sb strings.Builder
	sb.WriteString(`You are a strict JSON generator. Output ONLY valid JSON (no prose, no code fences) with this exact shape and 0..100 integers:
{
  "evidenceScore": 0,
  "userCredibilityScore": 0,
  "sourceScore": 0,
  "aiMetaScore": 0,
  "notes": ["..."],
  "perEvidence": [{"url":"...", "score":0, "comment":"..."}],
  "aiSources": ["https://...","..."]
}

Definitions:
- evidenceScore: quality & coverage of provided evidence URLs for the claim.
- userCredibilityScore: credibility of voters based on badge tier and stake.
- sourceScore: reliability of the claim's origin + evidence domains.
- aiMetaScore: your own research-based confidence after considering everything.
- aiSources: up to 6 URLs (news, primary/government, reputable orgs) that support your aiMetaScore.

Claim:
`)
	fmt.Fprintf(&sb, "- Title: %s\n- URL: %s\n- Summary: %s\n\nEvidence URLs:\n", in.Title, in.URL, in.Summary)
	for i, u := range evidenceURLs {
		fmt.Fprintf(&sb, " %d. %s\n", i+1, u)
	}
	sb.WriteString("\nVoter credibility (badge & stake):\n")
	for _, v := range in.Voters {
		fmt.Fprintf(&sb, " - tier:%s stake:%g\n", v.BadgeTier, v.Stake)
	}
	sb.WriteString(`
Rules:
- If uncertain about some scores, use conservative mid-values (40..60) but still return valid JSON.
- NEVER include explanations outside of the JSON.`)
	return sb.String()
}
