package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/veristake/veristake/src/api/config"
	"github.com/veristake/veristake/src/api/data"
	"github.com/veristake/veristake/src/api/market"
)

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client, store *data.Store, verifier *market.Verifier, engine *market.SettlementEngine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://app.veristake.io"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authH := NewAuth(rdb, []byte(cfg.JWTSecret))
	claimH := NewClaims(db, rdb, store, verifier, engine, cfg.FeeBps)
	voteH := NewVotes(db, rdb, store)
	userH := NewUsers(db)

	writeLimiter := NewRateLimiter(10, time.Minute)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/challenge", authH.Challenge)
		v1.POST("/auth/verify", authH.Verify)

		v1.GET("/claims", claimH.List)
		v1.GET("/claims/:id", claimH.Get)
		v1.GET("/claims/:id/votes", voteH.ListByClaim)

		secured := v1.Group("")
		secured.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		{
			limited := secured.Group("")
			limited.Use(RateLimitMiddleware(writeLimiter))
			{
				limited.POST("/claims", claimH.Create)
				limited.POST("/claims/:id/evidence", claimH.AddEvidence)
				limited.POST("/claims/:id/verify", claimH.Verify)
				limited.POST("/claims/:id/finalize", claimH.Finalize)
				limited.POST("/claims/:id/flag", claimH.Flag)
				limited.POST("/claims/:id/unflag", claimH.Unflag)
				limited.POST("/votes", voteH.Cast)
			}

			secured.GET("/votes/mine", voteH.ListMine)
			secured.GET("/users/:address", userH.Get)
		}
	}
}
