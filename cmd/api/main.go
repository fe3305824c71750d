package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/versachat/versachat-api/internal/config"
	"github.com/versachat/versachat-api/internal/logging"
	"github.com/versachat/versachat-api/internal/media"
	"github.com/versachat/versachat-api/internal/provider"
	"github.com/versachat/versachat-api/internal/ratelimit"
	miniorepo "github.com/versachat/versachat-api/internal/repository/minio"
	"github.com/versachat/versachat-api/internal/repository/ports"
	"github.com/versachat/versachat-api/internal/repository/postgres"
	"github.com/versachat/versachat-api/internal/service"
	"github.com/versachat/versachat-api/internal/token"
	transporthttp "github.com/versachat/versachat-api/internal/transport/http"
	"github.com/versachat/versachat-api/internal/transport/mail"
	"github.com/versachat/versachat-api/internal/verification"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("logstash disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	var storage ports.ObjectStorage
	if cfg.MinIOEndpoint != "" {
		client, err := miniorepo.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			log.Fatalf("connect minio: %v", err)
		}
		storage = miniorepo.NewStorage(client, cfg.MinIOPublicURL, cfg.MinIOUseSSL)
	}

	users := postgres.NewUserRepo(db)
	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	challenges := verification.NewStore(cfg.SignupCodeTTL)
	limiter := ratelimit.NewFixedWindow(cfg.RateLimitWindow, cfg.RateLimitMax)
	avatars := media.NewAvatarProcessor(cfg.AvatarMaxDimension, cfg.AvatarMaxBytes)
	linker := service.NewIdentityLinker(users, storage, avatars, cfg.MinIOBucketAvatar)
	google := provider.NewGoogle(cfg.GoogleAudience)
	mailer := mail.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.FrontendBaseURL)

	auth := service.NewAuthService(users, challenges, limiter, tokens, linker, google, mailer, cfg.SessionTTL, cfg.ResetTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go challenges.Run(ctx, cfg.ChallengeSweepIvl)

	e := transporthttp.NewRouter(cfg.AllowOrigins)
	transporthttp.RegisterAuth(e, auth)
	transporthttp.RegisterSwagger(e)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
