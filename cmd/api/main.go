package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Wikid82/warden/internal/api/routes"
	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/database"
	"github.com/Wikid82/warden/internal/jobs"
	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/metrics"
	"github.com/Wikid82/warden/internal/moderation"
	"github.com/Wikid82/warden/internal/platform"
	"github.com/Wikid82/warden/internal/server"
	"github.com/Wikid82/warden/internal/services"
	"github.com/Wikid82/warden/internal/vault"
	"github.com/Wikid82/warden/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().WithError(err).Fatal("load config")
	}

	// Setup logging with rotation
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		logger.Log().WithError(err).Fatal("create log directory")
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "warden.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger.Init(cfg.IsDevelopment(), io.MultiWriter(os.Stdout, rotator))
	log := logger.Log()
	log.WithField("version", version.Full()).Infof("starting %s", version.Name)

	if cfg.Auth.JWTSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.WithError(err).Fatal("generate jwt secret")
		}
		cfg.Auth.JWTSecret = hex.EncodeToString(secret)
		log.Warn("WARDEN_JWT_SECRET is not set; using an ephemeral secret, tokens will not survive a restart")
	}

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	v, err := vault.Open(cfg.Vault.KeyPath, cfg.Vault.Passphrase)
	if err != nil {
		log.WithError(err).Fatal("open vault")
	}

	var adapter moderation.Platform = platform.DryRun{}
	if cfg.Platform.BaseURL != "" {
		adapter = platform.NewBridge(cfg.Platform.BaseURL, cfg.Platform.Timeout)
		log.WithField("base_url", cfg.Platform.BaseURL).Info("using platform bridge")
	} else {
		log.Warn("WARDEN_PLATFORM_URL is not set; moderation actions are only logged")
	}

	members := services.NewMemberService(db)
	rules := services.NewAutoModService(db)
	secrets := services.NewSecretService(db, v)
	notifications := services.NewNotificationService(db)

	exec := moderation.NewExecutor(adapter, moderation.WithStrict(cfg.IsDevelopment()), moderation.WithDirectory(members))
	moderation.NewCascade(services.NewWarningService(db), rules, exec, notifications)

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := jobs.NewScheduler()
	if err := scheduler.AddVaultSweep(cfg.Vault.SweepSchedule, secrets); err != nil {
		log.WithError(err).Fatal("schedule vault sweep")
	}
	// Legacy rows are migrated before the first request can read them.
	jobs.RunVaultSweep(ctx, secrets)
	scheduler.Start()

	srv, err := server.New(db, cfg, routes.Services{
		Members:       members,
		Rules:         rules,
		Secrets:       secrets,
		Notifications: notifications,
		Executor:      exec,
	})
	if err != nil {
		log.WithError(err).Fatal("create server")
	}

	runErr := srv.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	notifications.Wait()

	if runErr != nil {
		log.WithError(runErr).Fatal("server error")
	}
	log.Info("shutdown complete")
}
