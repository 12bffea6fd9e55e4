package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	MySQLDSN  string
	RedisURL  string
	JWTSecret string
	RPCURL    string
	Port      string

	AIProvider string
	GeminiKey  string
	OpenAIKey  string
	ModelOrder []string

	FeeBps int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	feeBps, _ := strconv.Atoi(getenv("FEE_BPS", "250"))

	var modelOrder []string
	for _, m := range strings.Split(os.Getenv("MODEL_ORDER"), ",") {
		if m = strings.TrimSpace(m); m != "" {
			modelOrder = append(modelOrder, m)
		}
	}

	return Config{
		MySQLDSN:   getenv("MYSQL_DSN", "veristake:veristake@tcp(localhost:3306)/veristake?parseTime=true"),
		RedisURL:   getenv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:  getenv("JWT_SECRET", ""),
		RPCURL:     getenv("RPC_URL", "wss://rpc.polkadot.io"),
		Port:       getenv("PORT", "8080"),
		AIProvider: getenv("AI_PROVIDER", "gemini"),
		GeminiKey:  os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:  os.Getenv("OPENAI_API_KEY"),
		ModelOrder: modelOrder,
		FeeBps:     feeBps,
	}
}
