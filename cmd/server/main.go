package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"

	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/config"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/database"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/queue"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/repository"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/router"
	"github.com/Fintree-Finance-Pvt-Ltd/fintree-los-system/internal/service"
)

const auditRetentionDays = 30

func main() {
	// Missing .env is fine in containerized deployments where the
	// environment is injected directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting disabled")
	}

	// The consumer delivers OTP mail published by the auth handler. It
	// reconnects on its own, so a broker outage only delays delivery.
	mailer := service.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.OTPFrom)
	go queue.StartOTPConsumer(service.BrokerURL(), mailer)

	audit := repository.NewAuditRepo(db)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 2 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := audit.PurgeOlderThan(ctx, auditRetentionDays)
		if err != nil {
			log.Printf("audit purge: %v", err)
			return
		}
		log.Printf("audit purge: removed %d rows", n)
	}); err != nil {
		log.Fatalf("cron: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{Cfg: &cfg, DB: db, RDB: rdb})

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
