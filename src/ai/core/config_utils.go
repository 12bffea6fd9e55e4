package core

// valueOrDefault helpers shared by provider constructors.

func ValueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func OrFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func OrInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
