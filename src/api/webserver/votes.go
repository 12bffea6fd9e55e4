package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/veristake/veristake/src/api/data"
	"github.com/veristake/veristake/src/api/market"
	"github.com/veristake/veristake/src/api/types"
)

type Votes struct {
	db    *gorm.DB
	rdb   *redis.Client
	store *data.Store
}

func NewVotes(db *gorm.DB, rdb *redis.Client, store *data.Store) Votes {
	return Votes{db: db, rdb: rdb, store: store}
}

func (v Votes) Cast(c *gin.Context) {
	var req struct {
		ClaimID     string   `json:"claimId" binding:"required"`
		Position    string   `json:"position" binding:"required,oneof=truth fake"`
		Stake       float64  `json:"stake" binding:"required,gt=0"`
		StakePlanck string   `json:"stakePlanck" binding:"required,max=64"`
		Evidence    []string `json:"evidence" binding:"required,min=1,max=10,dive,url,max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !market.ValidPlanck(req.StakePlanck) {
		err := fmt.Errorf("%w: stakePlanck must be a positive integer string", market.ErrInvalidInput)
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	claim, err := v.store.GetClaim(c, req.ClaimID)
	if errors.Is(err, market.ErrClaimNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "claim not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	if !market.IsOpenForVotes(claim, time.Now().UTC()) {
		c.JSON(http.StatusConflict, gin.H{"err": "voting closed"})
		return
	}

	addr := c.GetString("addr")
	if addr == claim.Poster {
		c.JSON(http.StatusForbidden, gin.H{"err": "poster cannot vote on own claim"})
		return
	}

	var user types.User
	if err := v.db.FirstOrCreate(&user, types.User{Address: addr}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	evidenceQuality := 1.0
	truthScore := user.TruthScore
	if truthScore <= 0 || truthScore > 1 {
		truthScore = 1.0
	}

	weight, weightPlanck, err := market.ComputeWeight(req.Stake, req.StakePlanck, user.BadgeTier, evidenceQuality, truthScore)
	if errors.Is(err, market.ErrInvalidStake) {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	evidenceJSON, _ := json.Marshal(req.Evidence)

	vote := types.Vote{
		ClaimID:              claim.ClaimID,
		VoterAddress:         addr,
		Position:             req.Position,
		Stake:                req.Stake,
		StakePlanck:          req.StakePlanck,
		Weight:               weight,
		WeightPlanck:         weightPlanck,
		Evidence:             string(evidenceJSON),
		EvidenceQualityScore: evidenceQuality,
		TruthScore:           truthScore,
		BadgeTier:            user.BadgeTier,
	}
	if err := v.store.CreateVote(c, &vote); err != nil {
		if errors.Is(err, market.ErrDuplicateVote) {
			c.JSON(http.StatusConflict, gin.H{"err": "already voted on this claim"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	_ = data.PublishEvent(context.Background(), v.rdb, map[string]interface{}{
		"event":    "vote.cast",
		"claimId":  claim.ClaimID,
		"voter":    addr,
		"position": req.Position,
		"stake":    req.StakePlanck,
		"weight":   weightPlanck,
		"time":     time.Now().Unix(),
	})

	c.JSON(http.StatusCreated, gin.H{
		"id":           vote.ID,
		"weight":       weight,
		"weightPlanck": weightPlanck,
	})
}

func (v Votes) ListByClaim(c *gin.Context) {
	votes, err := v.store.FindVotes(c, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	totals := map[string]gin.H{}
	for _, side := range []string{market.PositionTruth, market.PositionFake} {
		count := 0
		stake := 0.0
		weight := 0.0
		for _, vote := range votes {
			if vote.Position != side {
				continue
			}
			count++
			stake += vote.Stake
			weight += vote.Weight
		}
		totals[side] = gin.H{"count": count, "stake": stake, "weight": weight}
	}

	c.JSON(http.StatusOK, gin.H{"votes": votes, "totals": totals})
}

func (v Votes) ListMine(c *gin.Context) {
	var votes []types.Vote
	err := v.db.Where("voter_address = ?", c.GetString("addr")).
		Order("created_at desc").Limit(100).Find(&votes).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}
