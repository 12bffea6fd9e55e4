package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veristake/veristake/src/ai/core"
)

// scriptedClient returns a canned response or error per model name.
type scriptedClient struct {
	byModel map[string]scriptedReply
	calls   []string
}

type scriptedReply struct {
	text string
	err  error
}

func (c *scriptedClient) Generate(ctx context.Context, prompt string, opts core.Options) (string, error) {
	c.calls = append(c.calls, opts.Model)
	r, ok := c.byModel[opts.Model]
	if !ok {
		return "", errors.New("unexpected model")
	}
	return r.text, r.err
}

const goodVerdict = `{
  "evidenceScore": 80,
  "userCredibilityScore": 70,
  "sourceScore": 75,
  "aiMetaScore": 85,
  "notes": ["solid corroboration"],
  "aiSources": ["https://reuters.com/a", "https://nature.com/b"]
}`

func newTestVerifier(t *testing.T, client core.Client, models []string) *Verifier {
	t.Helper()
	v, err := NewVerifier(client, NewEvidenceScorer(nil), models, time.Second)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func TestNewVerifierRequiresClient(t *testing.T) {
	if _, err := NewVerifier(nil, nil, nil, 0); !errors.Is(err, ErrNoProviderConfigured) {
		t.Fatalf("err = %v, want ErrNoProviderConfigured", err)
	}
}

func TestVerifyModelFallbackOrder(t *testing.T) {
	client := &scriptedClient{byModel: map[string]scriptedReply{
		"m1": {err: errors.New("quota exceeded")},
		"m2": {text: `{"evidenceScore":150,"userCredibilityScore":50,"sourceScore":50,"aiMetaScore":50}`},
		"m3": {text: goodVerdict},
	}}
	v := newTestVerifier(t, client, []string{"m1", "m2", "m3"})

	res, err := v.Verify(context.Background(), VerifyInput{Title: "t"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if res.ModelUsed != "m3" {
		t.Errorf("ModelUsed = %s, want m3", res.ModelUsed)
	}
	if len(res.ModelsTried) != 3 || res.ModelsTried[0] != "m1" || res.ModelsTried[2] != "m3" {
		t.Errorf("ModelsTried = %v, want [m1 m2 m3]", res.ModelsTried)
	}
	for name, sub := range map[string]SubScore{
		"ai": res.Breakdown.AI, "evidence": res.Breakdown.Evidence,
		"userCred": res.Breakdown.UserCred, "source": res.Breakdown.Source,
	} {
		if sub.Origin != FromAI {
			t.Errorf("%s origin = %s, want ai", name, sub.Origin)
		}
	}

	// 85*.35 + 80*.25 + 70*.20 + 75*.20 = 78.75 -> 79
	if res.FinalScore != 79 {
		t.Errorf("FinalScore = %d, want 79", res.FinalScore)
	}
	if res.Result != ResultTruth {
		t.Errorf("Result = %s, want Truth", res.Result)
	}
}

func TestVerifyHeuristicFallbackWhenAllModelsFail(t *testing.T) {
	client := &scriptedClient{byModel: map[string]scriptedReply{
		"m1": {err: errors.New("down")},
		"m2": {text: "I'm sorry, I cannot produce JSON."},
	}}
	v := newTestVerifier(t, client, []string{"m1", "m2"})

	res, err := v.Verify(context.Background(), VerifyInput{Title: "t"})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if res.ModelUsed != "" {
		t.Errorf("ModelUsed = %q, want empty", res.ModelUsed)
	}
	if len(res.ModelsTried) != 2 {
		t.Errorf("ModelsTried = %v, want both models", res.ModelsTried)
	}

	b := res.Breakdown
	if b.AI.Origin != FromHeuristic || b.AI.Value != 60 {
		t.Errorf("AI sub-score = %+v, want heuristic 60", b.AI)
	}
	if b.Evidence.Value != 28 {
		t.Errorf("Evidence = %v, want empty-evidence baseline 28", b.Evidence.Value)
	}
	if b.UserCred.Value != 50 {
		t.Errorf("UserCred = %v, want voterless default 50", b.UserCred.Value)
	}
	if b.Source.Value != 38 {
		t.Errorf("Source = %v, want no-source baseline 38", b.Source.Value)
	}

	// 60*.35 + 28*.25 + 50*.20 + 38*.20 = 45.6 -> 46 -> Fake
	if res.FinalScore != 46 || res.Result != ResultFake {
		t.Errorf("got %d/%s, want 46/Fake", res.FinalScore, res.Result)
	}
}

func TestVerifyTruthBoundary(t *testing.T) {
	client := &scriptedClient{byModel: map[string]scriptedReply{
		"m1": {text: `{"evidenceScore":50,"userCredibilityScore":50,"sourceScore":50,"aiMetaScore":50}`},
	}}
	v := newTestVerifier(t, client, []string{"m1"})

	res, err := v.Verify(context.Background(), VerifyInput{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.FinalScore != 50 || res.Result != ResultTruth {
		t.Errorf("got %d/%s, want exactly 50/Truth", res.FinalScore, res.Result)
	}
}

func TestWeightPlanNormalize(t *testing.T) {
	plan := WeightPlan{AI: 2, Evidence: 2, UserCred: 2, Source: 2}.Normalize()
	for _, w := range []float64{plan.AI, plan.Evidence, plan.UserCred, plan.Source} {
		if w != 0.25 {
			t.Fatalf("normalized weight = %v, want 0.25", w)
		}
	}

	zero := WeightPlan{}.Normalize()
	if zero.AI != 0 || zero.Evidence != 0 {
		t.Fatalf("zero plan should normalize to zero, got %+v", zero)
	}
}

func TestCredibilityScore(t *testing.T) {
	tests := []struct {
		name   string
		voters []VoterCredibility
		want   float64
	}{
		{"no voters", nil, 50},
		{"single expert", []VoterCredibility{{Stake: 10, BadgeTier: "expert"}}, 100},
		{"single bronze", []VoterCredibility{{Stake: 10, BadgeTier: "bronze"}}, 50},
		{
			"stake weighted",
			[]VoterCredibility{
				{Stake: 30, BadgeTier: "expert"}, // 30*100
				{Stake: 10, BadgeTier: "bronze"}, // 10*50
			},
			87.5,
		},
		{"stakeless voter counts with unit weight", []VoterCredibility{{Stake: 0, BadgeTier: "expert"}}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := credibilityScore(tt.voters); got != tt.want {
				t.Errorf("credibilityScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPickSources(t *testing.T) {
	evidence := []string{"https://e1.test", "https://e2.test"}
	ai := []string{"https://a1.test", "https://e1.test"}

	got := pickSources(0.6, evidence, ai)
	if got[0] != "https://a1.test" {
		t.Errorf("dominant AI weight should list AI sources first, got %v", got)
	}
	if len(got) != 3 {
		t.Errorf("sources should be deduplicated, got %v", got)
	}

	// The default blend weight (0.35) does not dominate; evidence leads.
	got = pickSources(0.35, evidence, ai)
	if got[0] != "https://e1.test" {
		t.Errorf("minor AI weight should list evidence first, got %v", got)
	}

	many := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	if got := pickSources(0, many, nil); len(got) != 6 {
		t.Errorf("sources should cap at 6, got %d", len(got))
	}
}
