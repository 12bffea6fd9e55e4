package db

import (
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/veristake/veristake/src/api/types"
)

func MustMySQL(dsn string) *gorm.DB {
	// TranslateError maps driver duplicate-key errors onto gorm.ErrDuplicatedKey,
	// which the store relies on for vote uniqueness.
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	return db
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Setting{},
		&types.User{},
		&types.Claim{},
		&types.ClaimEvidence{},
		&types.Vote{},
	)
}

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}
