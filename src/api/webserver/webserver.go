package webserver

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/veristake/veristake/src/api/config"
	"github.com/veristake/veristake/src/api/data"
	"github.com/veristake/veristake/src/api/market"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client, store *data.Store, verifier *market.Verifier, engine *market.SettlementEngine) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, db, rdb, store, verifier, engine)
	return g
}
