package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/veristake/veristake/src/api/types"
)

type Users struct{ db *gorm.DB }

func NewUsers(db *gorm.DB) Users { return Users{db: db} }

func (u Users) Get(c *gin.Context) {
	addr := c.Param("address")

	var user types.User
	err := u.db.First(&user, "address = ?", addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"err": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	var voteCount int64
	u.db.Model(&types.Vote{}).Where("voter_address = ?", addr).Count(&voteCount)

	var claimCount int64
	u.db.Model(&types.Claim{}).Where("poster = ?", addr).Count(&claimCount)

	c.JSON(http.StatusOK, gin.H{
		"address":    user.Address,
		"name":       user.DisplayName,
		"badgeTier":  user.BadgeTier,
		"truthScore": user.TruthScore,
		"votes":      voteCount,
		"claims":     claimCount,
	})
}
