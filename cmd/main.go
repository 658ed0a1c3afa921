package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lgcert/indigene-certificate/config"
	"github.com/lgcert/indigene-certificate/database"
	"github.com/lgcert/indigene-certificate/internal/event"
	"github.com/lgcert/indigene-certificate/internal/jobs"
	"github.com/lgcert/indigene-certificate/logger"
	"github.com/lgcert/indigene-certificate/routes"
	"github.com/lgcert/indigene-certificate/utils"
)

// @title LG Indigene Certificate API
// @version 1.0
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	log := logger.InitDefault(logger.Config{
		Level:   cfg.LogLevel,
		Service: "lgcert-api",
		Pretty:  cfg.Environment == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal(err, "database connection failed")
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal(err, "database migration failed")
	}
	if err := database.Seed(db, cfg.SuperAdminEmail, cfg.SuperAdminPassword, log); err != nil {
		log.Fatal(err, "seeding failed")
	}

	rdb, err := utils.InitRedis(ctx, cfg)
	if err != nil {
		log.Fatal(err, "redis init failed")
	}
	if rdb != nil {
		defer rdb.Close()
		log.Infof("redis connected at %s", cfg.RedisAddr)
	}

	fcm, err := utils.InitFirebase(ctx, cfg, log)
	if err != nil {
		log.Warnf("firebase initialization failed, push notifications disabled: %v", err)
	}

	infra := routes.Infra{DB: db, Redis: rdb, Messaging: fcm, Log: log}
	services, err := routes.BuildServices(cfg, infra)
	if err != nil {
		log.Fatal(err, "service wiring failed")
	}
	defer func() {
		if err := services.Close(); err != nil {
			log.Errorf(err, "shutdown")
		}
	}()

	if routes.KafkaEnabled(cfg) {
		consumer := event.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, services.Notifications, log)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Errorf(err, "notification consumer stopped")
			}
		}()
	}

	reconciler := jobs.NewReconciler(map[string]jobs.Sweeper{
		"application":  services.Applications,
		"digitization": services.Digitization,
	}, cfg.StaleAfter(), log)
	if err := reconciler.Start("@every 1h"); err != nil {
		log.Fatal(err, "scheduling reconciliation failed")
	}
	defer reconciler.Stop()

	router := routes.NewRouter(cfg, infra)
	routes.Setup(router, cfg, infra, services)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("server listening on :%s (uploads in %s)", cfg.Port, services.Files.Root())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf(err, "graceful shutdown")
	}
}
