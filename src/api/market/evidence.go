package market

import (
	"net/url"
	"strings"
)

// DefaultTrustedDomains is the built-in allow-list; the settings table can
// override it at startup.
var DefaultTrustedDomains = []string{
	"bbc.com", "reuters.com", "apnews.com", "nature.com", "who.int", "nytimes.com",
}

const (
	emptyEvidenceScore = 28
	unknownDomainScore = 45
	trustedDomainScore = 62
	govEduScore        = 68
	duplicatePenalty   = 3

	noSourceScore   = 38
	sourceBaseScore = 42
)

// EvidenceItem is one evidence URL with an optional explicit quality score.
// Quality in [0,1] is normalized to [0,100].
type EvidenceItem struct {
	URL          string
	QualityScore *float64
}

// EvidenceScorer scores evidence credibility heuristically, used whenever no
// AI judgment is available or trusted.
type EvidenceScorer struct {
	trusted []string
}

func NewEvidenceScorer(trusted []string) *EvidenceScorer {
	if len(trusted) == 0 {
		trusted = DefaultTrustedDomains
	}
	return &EvidenceScorer{trusted: trusted}
}

// ScoreEvidence averages per-item credibility and penalizes repeated URLs so
// many copies of the same link cannot inflate the score. Empty evidence gets
// a conservative baseline, not zero.
func (s *EvidenceScorer) ScoreEvidence(items []EvidenceItem) float64 {
	if len(items) == 0 {
		return emptyEvidenceScore
	}

	seen := map[string]int{}
	for _, it := range items {
		if it.URL != "" {
			seen[it.URL]++
		}
	}
	repeats := len(items) - len(seen)
	if repeats < 0 {
		repeats = 0
	}

	var sum float64
	for _, it := range items {
		sum += s.scoreItem(it)
	}
	avg := sum / float64(len(items))

	return clamp100(avg - float64(repeats*duplicatePenalty))
}

func (s *EvidenceScorer) scoreItem(it EvidenceItem) float64 {
	if it.QualityScore != nil {
		q := *it.QualityScore
		if q <= 1 {
			q *= 100
		}
		return clamp100(q)
	}
	d := domainFromURL(it.URL)
	if isGovOrEdu(d) {
		return govEduScore
	}
	if s.isTrusted(d) {
		return trustedDomainScore
	}
	return unknownDomainScore
}

// ScoreSourceReliability rates the claim origin plus evidence domains: the
// trusted-domain ratio drives the score, with a small bonus for government
// and education sources.
func (s *EvidenceScorer) ScoreSourceReliability(claimURL string, evidenceURLs []string) float64 {
	urls := make([]string, 0, len(evidenceURLs)+1)
	if claimURL != "" {
		urls = append(urls, claimURL)
	}
	for _, u := range evidenceURLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return noSourceScore
	}

	trustedHits := 0
	govEdu := 0
	for _, u := range urls {
		d := domainFromURL(u)
		if d == "" {
			continue
		}
		if s.isTrusted(d) {
			trustedHits++
		}
		if isGovOrEdu(d) {
			govEdu++
		}
	}

	ratio := float64(trustedHits) / float64(len(urls))
	bonus := float64(govEdu * 2)
	if bonus > 8 {
		bonus = 8
	}
	return clamp100(sourceBaseScore + ratio*55 + bonus)
}

func (s *EvidenceScorer) isTrusted(domain string) bool {
	if domain == "" {
		return false
	}
	for _, td := range s.trusted {
		if strings.HasSuffix(domain, td) {
			return true
		}
	}
	return false
}

func isGovOrEdu(domain string) bool {
	return strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".edu")
}

func domainFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
