package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Wikid82/warden/internal/api/middleware"
	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/database"
	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/services"
)

const devTenant = "dev-guild"

func main() {
	logger.Init(true, os.Stdout)
	log := logger.Log()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}
	fmt.Println("✓ Database migrated successfully")

	ctx := context.Background()

	// Seed the development community
	members := services.NewMemberService(db)
	tenant := &models.Tenant{ID: devTenant, Name: "Development Guild", OwnerID: "owner"}
	roster := []models.Member{
		{UserID: "owner", DisplayName: "Olivia", Rank: 100},
		{UserID: "admin", DisplayName: "Arthur", Rank: 50, Capabilities: "Administrator"},
		{UserID: "mod", DisplayName: "Morgan", Rank: 20, Capabilities: "KickMembers,ManageMessages,ModerateMembers"},
		{UserID: "helper", DisplayName: "Harper", Rank: 10, Capabilities: "ManageMessages"},
		{UserID: "member-1", DisplayName: "Sam", Rank: 1},
		{UserID: "member-2", DisplayName: "Alex", Rank: 1},
	}
	if err := members.Sync(ctx, tenant, roster); err != nil {
		log.WithError(err).Fatal("seed members")
	}
	fmt.Printf("✓ Seeded %d members in %s\n", len(roster), tenant.Name)

	// Seed default auto-moderation rules
	rules := services.NewAutoModService(db)
	defaults := []models.AutoModRule{
		{Threshold: 3, Action: models.RuleActionMute, Duration: "1h", Reason: "three warnings"},
		{Threshold: 5, Action: models.RuleActionKick, Reason: "five warnings"},
		{Threshold: 7, Action: models.RuleActionBan, Duration: "1d", Reason: "seven warnings"},
	}
	for i := range defaults {
		rule := defaults[i]
		rule.TenantID = devTenant
		rule.CreatedBy = "seed"
		if err := rules.Upsert(ctx, &rule); err != nil {
			log.WithError(err).WithField("threshold", rule.Threshold).Fatal("seed rule")
		}
		fmt.Printf("✓ Rule: %d warnings -> %s\n", rule.Threshold, rule.Action)
	}

	// Development tokens
	if cfg.Auth.JWTSecret == "" {
		fmt.Println("\nSet WARDEN_JWT_SECRET to print development tokens.")
		return
	}
	fmt.Println("\nDevelopment tokens (valid 24h):")
	for _, actor := range []string{"owner", "admin", "mod", "member-1"} {
		token, err := middleware.SignToken([]byte(cfg.Auth.JWTSecret), actor, devTenant, 24*time.Hour)
		if err != nil {
			log.WithError(err).Fatal("sign token")
		}
		fmt.Printf("  %-8s %s\n", actor, token)
	}
}
