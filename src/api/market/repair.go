package market

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Model output is frequently JSON wrapped in code fences, sprinkled with
// smart quotes or trailing commas, or embedded in prose. The repair pipeline
// applies fixes progressively and only as far as needed; if nothing yields
// parseable JSON the attempt counts as a provider failure.

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```$")
	trailingRe   = regexp.MustCompile(`,\s*([}\]])`)
)

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func normalizeQuotes(s string) string {
	replacer := strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"″", `"`, "‶", `"`,
		"‘", "'", "’", "'",
	)
	return replacer.Replace(s)
}

func trimTrailingCommas(s string) string {
	return trailingRe.ReplaceAllString(s, "$1")
}

// largestJSONBlock extracts the longest balanced bracket/brace span, for
// responses that bury the JSON document inside prose.
func largestJSONBlock(s string) string {
	var best string
	var opens []int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '[':
			opens = append(opens, i)
		case '}', ']':
			if len(opens) == 0 {
				continue
			}
			start := opens[len(opens)-1]
			opens = opens[:len(opens)-1]
			if candidate := s[start : i+1]; len(candidate) > len(best) {
				best = candidate
			}
		}
	}
	if best == "" {
		return s
	}
	return best
}

// repairUnmarshal parses raw model text into v, repairing progressively:
// fences, then quote normalization, then trailing commas, then the longest
// balanced block with the prior two repairs reapplied.
func repairUnmarshal(text string, v interface{}) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	t := stripCodeFences(text)
	if json.Unmarshal([]byte(t), v) == nil {
		return true
	}

	t = normalizeQuotes(t)
	if json.Unmarshal([]byte(t), v) == nil {
		return true
	}

	t = trimTrailingCommas(t)
	if json.Unmarshal([]byte(t), v) == nil {
		return true
	}

	if block := largestJSONBlock(t); block != t {
		block = trimTrailingCommas(normalizeQuotes(block))
		if json.Unmarshal([]byte(block), v) == nil {
			return true
		}
	}
	return false
}
