package market

import "testing"

func ptr(f float64) *float64 { return &f }

func TestScoreEvidence(t *testing.T) {
	s := NewEvidenceScorer(nil)

	tests := []struct {
		name  string
		items []EvidenceItem
		want  float64
	}{
		{"empty evidence gets baseline", nil, 28},
		{"unknown domain", []EvidenceItem{{URL: "https://someblog.example.net/post"}}, 45},
		{"trusted domain", []EvidenceItem{{URL: "https://www.bbc.com/news/1"}}, 62},
		{"gov domain", []EvidenceItem{{URL: "https://cdc.gov/report"}}, 68},
		{"explicit unit quality scales to 100", []EvidenceItem{{URL: "https://x.test", QualityScore: ptr(0.9)}}, 90},
		{"explicit percent quality kept", []EvidenceItem{{URL: "https://x.test", QualityScore: ptr(73)}}, 73},
		{
			"repeated urls are penalized",
			[]EvidenceItem{
				{URL: "https://someblog.example.net/post"},
				{URL: "https://someblog.example.net/post"},
				{URL: "https://someblog.example.net/post"},
			},
			39, // 45 average minus 2 repeats * 3
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ScoreEvidence(tt.items); got != tt.want {
				t.Errorf("ScoreEvidence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreEvidenceDuplicatesNeverHelp(t *testing.T) {
	s := NewEvidenceScorer(nil)
	single := s.ScoreEvidence([]EvidenceItem{{URL: "https://nature.com/article"}})
	tripled := s.ScoreEvidence([]EvidenceItem{
		{URL: "https://nature.com/article"},
		{URL: "https://nature.com/article"},
		{URL: "https://nature.com/article"},
	})
	if tripled >= single {
		t.Fatalf("duplicating a url raised the score: %v >= %v", tripled, single)
	}
}

func TestScoreSourceReliability(t *testing.T) {
	s := NewEvidenceScorer(nil)

	tests := []struct {
		name     string
		claimURL string
		urls     []string
		want     float64
	}{
		{"no sources at all", "", nil, 38},
		{"single untrusted", "https://random.example.org/x", nil, 42},
		{"single trusted", "https://reuters.com/article", nil, 97},
		{"gov bonus without trust", "https://nasa.gov/page", nil, 44},
		{
			"gov bonus is capped",
			"https://a.gov/1",
			[]string{"https://b.gov/2", "https://c.gov/3", "https://d.gov/4", "https://e.gov/5"},
			50, // base 42 + ratio 0 + capped bonus 8
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ScoreSourceReliability(tt.claimURL, tt.urls); got != tt.want {
				t.Errorf("ScoreSourceReliability = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCustomTrustedDomains(t *testing.T) {
	s := NewEvidenceScorer([]string{"example.org"})
	if got := s.ScoreEvidence([]EvidenceItem{{URL: "https://example.org/a"}}); got != 62 {
		t.Fatalf("custom trusted domain score = %v, want 62", got)
	}
	// Default list no longer applies once overridden.
	if got := s.ScoreEvidence([]EvidenceItem{{URL: "https://bbc.com/a"}}); got != 45 {
		t.Fatalf("bbc should be unknown under custom list, got %v", got)
	}
}
