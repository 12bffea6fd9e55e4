package webserver

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/veristake/veristake/src/api/data"
	"github.com/veristake/veristake/src/api/market"
	"github.com/veristake/veristake/src/api/types"
)

type Claims struct {
	db        *gorm.DB
	rdb       *redis.Client
	store     *data.Store
	verifier  *market.Verifier
	engine    *market.SettlementEngine
	sanitizer *bluemonday.Policy
	feeBps    int
}

func NewClaims(db *gorm.DB, rdb *redis.Client, store *data.Store, verifier *market.Verifier, engine *market.SettlementEngine, feeBps int) Claims {
	sanitizer := bluemonday.StrictPolicy()
	return Claims{db: db, rdb: rdb, store: store, verifier: verifier, engine: engine, sanitizer: sanitizer, feeBps: feeBps}
}

// eligibilityHash is a short fingerprint binding the claim to its poster; the
// on-chain remark watcher and the frontend both display it.
func eligibilityHash(poster, claimID string) string {
	h := xxhash.NewS64(0)
	h.Write([]byte(poster))
	h.Write([]byte{0})
	h.Write([]byte(claimID))
	out := make([]byte, 8)
	sum := h.Sum64()
	for i := 0; i < 8; i++ {
		out[i] = byte(sum >> (8 * i))
	}
	return hex.EncodeToString(out)
}

func (h Claims) Create(c *gin.Context) {
	var req struct {
		Title             string `json:"title" binding:"required,min=8,max=255"`
		Summary           string `json:"summary" binding:"max=5000"`
		URL               string `json:"url" binding:"omitempty,url,max=512"`
		Category          string `json:"category" binding:"required,max=32"`
		VotingDurationSec uint32 `json:"votingDurationSec" binding:"omitempty,min=60,max=86400"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	req.Title = html.EscapeString(req.Title)
	req.Summary = h.sanitizer.Sanitize(req.Summary)

	poster := c.GetString("addr")
	claimID := uuid.NewString()
	if req.VotingDurationSec == 0 {
		req.VotingDurationSec = 300
	}

	claim := types.Claim{
		ClaimID:           claimID,
		Title:             req.Title,
		Summary:           req.Summary,
		URL:               req.URL,
		Category:          req.Category,
		Poster:            poster,
		EligibilityHash:   eligibilityHash(poster, claimID),
		PostedAt:          time.Now().UTC(),
		VotingDurationSec: req.VotingDurationSec,
		Status:            market.StatusPending,
	}
	if err := h.db.Create(&claim).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	_ = h.db.FirstOrCreate(&types.User{Address: poster}).Error

	// The claim goes live once the poster publishes this remark on-chain and
	// the watcher confirms it.
	c.JSON(http.StatusCreated, gin.H{
		"claimId": claimID,
		"remark":  "veristake:claim:" + claimID,
		"status":  claim.Status,
	})
}

func (h Claims) List(c *gin.Context) {
	q := h.db.Model(&types.Claim{}).Order("posted_at desc").Limit(50)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}

	var claims []types.Claim
	if err := q.Find(&claims).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

func (h Claims) Get(c *gin.Context) {
	var claim types.Claim
	err := h.db.Preload("Evidence").First(&claim, "claim_id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "claim not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (h Claims) AddEvidence(c *gin.Context) {
	var req struct {
		URL          string   `json:"url" binding:"required,url,max=512"`
		QualityScore *float64 `json:"qualityScore" binding:"omitempty,min=0,max=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	claim, err := h.store.GetClaim(c, c.Param("id"))
	if errors.Is(err, market.ErrClaimNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "claim not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	if !market.CanReverify(claim) {
		c.JSON(http.StatusConflict, gin.H{"err": "claim not accepting evidence"})
		return
	}

	ev := types.ClaimEvidence{
		ClaimID:      claim.ClaimID,
		URL:          req.URL,
		QualityScore: req.QualityScore,
		AddedBy:      c.GetString("addr"),
	}
	if err := h.db.Create(&ev).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": ev.ID})
}

// Verify runs the verification pipeline and stores the result on the claim.
// Legal until settlement locks the claim; later runs overwrite earlier ones.
func (h Claims) Verify(c *gin.Context) {
	claim, err := h.store.GetClaim(c, c.Param("id"))
	if errors.Is(err, market.ErrClaimNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "claim not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	if !market.CanReverify(claim) {
		c.JSON(http.StatusConflict, gin.H{"err": "claim already settled"})
		return
	}

	input, err := h.buildVerifyInput(claim)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c, 4*time.Minute)
	defer cancel()
	res, err := h.verifier.Verify(ctx, *input)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"err": err.Error()})
		return
	}

	breakdown, _ := json.Marshal(res.Breakdown)
	sources, _ := json.Marshal(res.Sources)
	tried, _ := json.Marshal(res.ModelsTried)
	verifiedAt := res.VerifiedAt

	toStatus := ""
	if market.DeadlinePassed(claim, time.Now().UTC()) {
		toStatus = market.StatusVerified
	}

	ver := types.AIVerification{
		Result:      res.Result,
		FinalScore:  res.FinalScore,
		Reasoning:   res.Reasoning,
		Breakdown:   string(breakdown),
		Sources:     string(sources),
		ModelUsed:   res.ModelUsed,
		ModelsTried: string(tried),
		VerifiedAt:  &verifiedAt,
	}
	if err := h.store.SaveVerification(c, claim.ClaimID, ver, toStatus); err != nil {
		if errors.Is(err, market.ErrInvalidState) {
			c.JSON(http.StatusConflict, gin.H{"err": "claim already settled"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":      res.Result,
		"finalScore":  res.FinalScore,
		"reasoning":   res.Reasoning,
		"breakdown":   res.Breakdown,
		"sources":     res.Sources,
		"modelUsed":   res.ModelUsed,
		"modelsTried": res.ModelsTried,
		"verifiedAt":  res.VerifiedAt,
	})
}

// buildVerifyInput gathers claim evidence, voter-attached evidence and voter
// credibility into one orchestrator input.
func (h Claims) buildVerifyInput(claim *types.Claim) (*market.VerifyInput, error) {
	var rows []types.ClaimEvidence
	if err := h.db.Where("claim_id = ?", claim.ClaimID).Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]market.EvidenceItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, market.EvidenceItem{URL: r.URL, QualityScore: r.QualityScore})
	}

	votes, err := h.store.FindVotes(context.Background(), claim.ClaimID)
	if err != nil {
		return nil, err
	}

	voters := make([]market.VoterCredibility, 0, len(votes))
	for _, v := range votes {
		voters = append(voters, market.VoterCredibility{Stake: v.Stake, BadgeTier: v.BadgeTier})

		var urls []string
		if json.Unmarshal([]byte(v.Evidence), &urls) == nil {
			for _, u := range urls {
				q := v.EvidenceQualityScore
				items = append(items, market.EvidenceItem{URL: u, QualityScore: &q})
			}
		}
	}

	return &market.VerifyInput{
		Title:    claim.Title,
		URL:      claim.URL,
		Summary:  claim.Summary,
		Evidence: items,
		Voters:   voters,
	}, nil
}

func (h Claims) Finalize(c *gin.Context) {
	outcome, err := h.engine.Finalize(c, c.Param("id"), h.feeBps)
	switch {
	case err == nil:
	case errors.Is(err, market.ErrClaimNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": "claim not found"})
		return
	case errors.Is(err, market.ErrAlreadyFinalized):
		c.JSON(http.StatusConflict, gin.H{"err": "claim already settled"})
		return
	case errors.Is(err, market.ErrAlreadyFinalizing):
		c.JSON(http.StatusConflict, gin.H{"err": "settlement already in progress"})
		return
	case errors.Is(err, market.ErrVotingOpen):
		c.JSON(http.StatusConflict, gin.H{"err": "voting still open"})
		return
	case errors.Is(err, market.ErrNoVerdict):
		c.JSON(http.StatusConflict, gin.H{"err": "no definite verification result"})
		return
	case errors.Is(err, market.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	_ = data.PublishEvent(context.Background(), h.rdb, map[string]interface{}{
		"event":     "claim.settled",
		"claimId":   outcome.ClaimID,
		"winner":    outcome.Winner,
		"payout":    outcome.PayoutStatus,
		"pool":      outcome.DistributablePlanck,
		"perWeight": outcome.PerWeightPlanck,
		"winners":   outcome.WinnersRewarded,
		"time":      time.Now().Unix(),
	})

	c.JSON(http.StatusOK, outcome)
}

func (h Claims) Flag(c *gin.Context) {
	tx := h.db.Model(&types.Claim{}).
		Where("claim_id = ? AND status IN ?", c.Param("id"),
			[]string{market.StatusPending, market.StatusVoting, market.StatusEnded, market.StatusVerified}).
		Updates(map[string]interface{}{
			"flagged_from": gorm.Expr("status"),
			"status":       market.StatusFlagged,
		})
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": tx.Error.Error()})
		return
	}
	if tx.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"err": "claim cannot be flagged"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": market.StatusFlagged})
}

func (h Claims) Unflag(c *gin.Context) {
	claim, err := h.store.GetClaim(c, c.Param("id"))
	if errors.Is(err, market.ErrClaimNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "claim not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	if claim.Status != market.StatusFlagged {
		c.JSON(http.StatusConflict, gin.H{"err": "claim is not flagged"})
		return
	}

	restore := claim.FlaggedFrom
	if restore == "" {
		restore = market.StatusVoting
	}
	tx := h.db.Model(&types.Claim{}).
		Where("claim_id = ? AND status = ?", claim.ClaimID, market.StatusFlagged).
		Updates(map[string]interface{}{"status": restore, "flagged_from": ""})
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": tx.Error.Error()})
		return
	}
	if tx.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"err": "claim is not flagged"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": restore})
}
