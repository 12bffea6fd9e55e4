package market

import (
	"math/big"
)

// Planck amounts travel as ASCII decimal strings (no sign, no leading zeros
// beyond "0") and are the only quantities trusted for payout math. Float
// mirrors are display-only.

// ValidPlanck reports whether s is a well-formed planck amount string.
func ValidPlanck(s string) bool {
	if s == "" {
		return false
	}
	if len(s) > 1 && s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parsePlanck(s string) (*big.Int, bool) {
	if !ValidPlanck(s) {
		return nil, false
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, false
	}
	return n, true
}
