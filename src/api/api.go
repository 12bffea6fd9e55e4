package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veristake/veristake/src/ai/core"
	_ "github.com/veristake/veristake/src/ai/providers"
	"github.com/veristake/veristake/src/api/config"
	"github.com/veristake/veristake/src/api/data"
	"github.com/veristake/veristake/src/api/db"
	"github.com/veristake/veristake/src/api/market"
	"github.com/veristake/veristake/src/api/webserver"
)

func main() {
	cfg := config.Load()

	gdb := db.MustMySQL(cfg.MySQLDSN)
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := data.LoadSettings(gdb); err != nil {
		log.Printf("settings: %v", err)
	}

	rdb := db.MustRedis(cfg.RedisURL)
	store := data.NewStore(gdb)

	aiClient, err := core.NewClient(core.FactoryConfig{
		Provider:  cfg.AIProvider,
		GeminiKey: cfg.GeminiKey,
		OpenAIKey: cfg.OpenAIKey,
	})
	if err != nil {
		log.Fatalf("ai client: %v", err)
	}

	trusted := data.GetSettingList("trusted_domains")
	scorer := market.NewEvidenceScorer(trusted)

	verifier, err := market.NewVerifier(aiClient, scorer, cfg.ModelOrder, 0)
	if err != nil {
		log.Fatalf("verifier: %v", err)
	}
	engine := market.NewSettlementEngine(store)

	ctx, cancel := context.WithCancel(context.Background())
	data.StartClaimWatcher(ctx, cfg.RPCURL, store)

	router := webserver.New(cfg, gdb, rdb, store, verifier, engine)
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("VeriStake API listening on %s", cfg.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
