package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/tradeops/cot-mapping-service/pkg/analytics"
	"github.com/tradeops/cot-mapping-service/pkg/assist"
	"github.com/tradeops/cot-mapping-service/pkg/audit"
	"github.com/tradeops/cot-mapping-service/pkg/common/config"
	"github.com/tradeops/cot-mapping-service/pkg/common/database"
	"github.com/tradeops/cot-mapping-service/pkg/common/kafka"
	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
	"github.com/tradeops/cot-mapping-service/pkg/ingest"
	"github.com/tradeops/cot-mapping-service/pkg/mailbox"
	"github.com/tradeops/cot-mapping-service/pkg/mapping"
	"github.com/tradeops/cot-mapping-service/pkg/monitor"
	"github.com/tradeops/cot-mapping-service/pkg/notify"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.NewPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres(db)

	mappingRepo := mapping.NewRepository(db)
	if err := mappingRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate mapping tables")
	}

	auditRepo := audit.NewRepository(db)
	if err := auditRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate processing log tables")
	}

	mailboxRepo := mailbox.NewRepository(db)
	if err := mailboxRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate delivery config tables")
	}
	if err := mailboxRepo.Seed(context.Background(), &mailbox.Config{
		IMAPServer:       cfg.IMAPServer,
		IMAPPort:         cfg.IMAPPort,
		SMTPServer:       cfg.SMTPServer,
		SMTPPort:         cfg.SMTPPort,
		Username:         cfg.MailUsername,
		Password:         cfg.MailPassword,
		Folder:           cfg.MailFolder,
		SubjectFilter:    cfg.SubjectFilter,
		PollIntervalSecs: int(cfg.PollInterval.Seconds()),
	}); err != nil {
		logger.Log.WithError(err).Fatal("failed to seed delivery config")
	}

	aliases, err := ingest.LoadAliases(cfg.HeaderAliasFile)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load header alias rules")
	}

	var producer ingest.EventPublisher
	if cfg.KafkaBatchTopic != "" {
		kafkaProducer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaBatchTopic)
		defer kafkaProducer.Close()
		producer = kafkaProducer
	}

	redisClient := database.NewRedis(cfg)
	defer redisClient.Close()
	summaryCache := analytics.NewRedisCache(redisClient, cfg.SummaryCacheTTL)
	analyticsSvc := analytics.NewService(mappingRepo, auditRepo, summaryCache)

	ingestSvc := ingest.NewService(ingest.NewStore(mappingRepo), auditRepo, aliases, producer, analyticsSvc)

	mailClient := mailbox.NewClient(ingest.IsSpreadsheet)
	mailer := notify.NewMailer()
	worker := monitor.NewWorker(mailboxRepo, mailClient, ingestSvc, mailer, cfg.ErrorBackoff, cfg.StopWaitTimeout)

	advisor := assist.NewAdvisor(analyticsSvc, cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	ingest.NewHTTPHandler(ingestSvc, cfg.MaxUploadBytes).Register(api)
	mapping.NewHandler(mappingRepo).Register(api)
	audit.NewHandler(auditRepo, cfg.LogRetentionDays).Register(api)
	mailbox.NewHandler(mailboxRepo).Register(api)
	monitor.NewHandler(worker).Register(api)
	analytics.NewHandler(analyticsSvc).Register(api)
	assist.NewHandler(advisor).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("CoT Mapping Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	// Start the mailbox poller when a delivery config is already enabled.
	if active, err := mailboxRepo.Active(context.Background()); err == nil && active.Enabled {
		worker.Start()
	}

	go func() {
		ticker := time.NewTicker(cfg.RetentionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().UTC().AddDate(0, 0, -cfg.LogRetentionDays)
				removed, err := auditRepo.DeleteOlderThan(context.Background(), cutoff)
				if err != nil {
					logger.Log.WithError(err).Warn("processing log cleanup failed")
				} else if removed > 0 {
					logger.Log.WithField("removed", removed).Info("Expired processing logs removed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down CoT Mapping Service...")
	cancel()
	worker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("CoT Mapping Service stopped")
}
