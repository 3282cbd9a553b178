package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/blocklist"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/classifier"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/config"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/database"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/detector"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/handlers"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/kafka"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/middleware"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/qr"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/ratelimiter"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/repository"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/reputation"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/signatures"
)

func main() {
	cfg := config.Load()

	logger := log.New(os.Stdout, "[PHISHGUARD] ", log.LstdFlags|log.Lshortfile)

	var ipRepo *repository.IPReputationRepository
	var eventRepo *repository.ScanEventRepository

	db, err := database.New(cfg.PostgresDSN)
	if err != nil {
		logger.Printf("Warning: PostgreSQL connection failed: %v. Running without database.", err)
	} else {
		if err := db.InitSchema(); err != nil {
			logger.Printf("Warning: Schema initialization failed: %v", err)
		}
		ipRepo = repository.NewIPReputationRepository(db.Conn())
		eventRepo = repository.NewScanEventRepository(db.Conn())
		logger.Printf("Connected to PostgreSQL database successfully")
		defer db.Close()
	}

	redisClient := ratelimiter.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	redisOK := true
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		redisOK = false
		logger.Printf("Warning: Redis connection failed: %v. Scan quota will fail open.", err)
	}
	defer redisClient.Close()
	scanQuota := ratelimiter.New(redisClient, cfg.ScanQuotaMax, cfg.ScanQuotaWindow)

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer producer.Close()

	var blockPub *blocklist.Publisher
	if cfg.AMQPURL != "" {
		blockPub, err = blocklist.NewPublisher(cfg.AMQPURL, cfg.BlockExchange, logger)
		if err != nil {
			logger.Printf("Warning: RabbitMQ connection failed: %v. Blocks will not be fanned out.", err)
		} else {
			defer blockPub.Close()
		}
	}

	mode, err := reputation.ParsePersistMode(cfg.ReputationPersistMode)
	if err != nil {
		logger.Printf("Warning: %v, using %s", err, reputation.PersistSync)
		mode = reputation.PersistSync
	}

	tracker := reputation.NewTracker(openReputationStore(cfg, ipRepo, redisClient, redisOK, logger), reputation.Options{
		Mode:      mode,
		Retention: cfg.ReputationRetention,
		Logger:    logger,
		OnBlock: func(rec models.IPRecord) {
			event := kafka.NewReputationEvent(rec.SourceID, models.EventSourceBlocked, rec.Attempts)
			if err := producer.PublishScanEvent(context.Background(), event); err != nil {
				logger.Printf("Failed to publish block event for %s: %v", rec.SourceID, err)
			}
			if blockPub == nil {
				return
			}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := blockPub.PublishBlock(ctx, rec.SourceID, reputation.BlockDuration); err != nil {
					logger.Printf("Failed to publish block for %s: %v", rec.SourceID, err)
				}
			}()
		},
	})
	if err := tracker.Load(context.Background()); err != nil {
		logger.Printf("Warning: Failed to load reputation records: %v. Starting empty.", err)
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	flushEvery := cfg.ReputationFlushInterval
	if flushEvery <= 0 {
		flushEvery = 5 * time.Second
	}
	go tracker.Run(bgCtx, flushEvery)

	var consumer *kafka.Consumer
	if eventRepo != nil {
		handler := kafka.NewAuditHandler(eventRepo, logger)
		consumer = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, handler, logger)
		consumer.Start(bgCtx)
		defer consumer.Close()
	}

	var model classifier.Client = classifier.Unavailable{}
	if cfg.ClassifierURL != "" {
		model = classifier.NewHTTPClient(cfg.ClassifierURL, cfg.ClassifierTimeout)
	} else {
		logger.Printf("Warning: CLASSIFIER_URL not set. Scans run heuristic-only.")
	}

	entries := signatures.Builtin()
	if cfg.SignatureDB != "" {
		extra, err := signatures.LoadSQLite(cfg.SignatureDB)
		if err != nil {
			logger.Printf("Warning: Failed to load signature database: %v", err)
		}
		entries = append(entries, extra...)
	}
	sigs := signatures.New(entries...)
	logger.Printf("Loaded %d malware signatures", sigs.Len())

	urls := detector.NewURLAnalyzer(model, cfg.ClassifierTimeout, logger)
	emails := detector.NewEmailAnalyzer(model, cfg.ClassifierTimeout, logger)
	files := detector.NewFileAnalyzer(urls, sigs, qr.NewDecoder(), detector.FileOptions{
		QRTimeout:  cfg.QRDecodeTimeout,
		MaxQRBytes: cfg.MaxUploadBytes,
	}, logger)
	analyzers := handlers.Analyzers{
		URL:     urls,
		Email:   emails,
		File:    files,
		Message: detector.NewMessageAnalyzer(emails, files),
	}

	var audit handlers.AuditStore
	if eventRepo != nil {
		audit = eventRepo
	}

	requestLogs := middleware.NewRequestLogStore(100)
	scanHandler := handlers.NewScanHandler(analyzers, tracker, producer, logger)
	adminHandler := handlers.NewAdminHandler(tracker, producer, audit, scanQuota, requestLogs, logger)

	loggingMiddleware := middleware.NewLoggingMiddleware(logger, requestLogs)
	ipFilterMiddleware := middleware.NewIPFilterMiddleware(tracker, logger)
	var quota middleware.Quota
	if cfg.ScanQuotaMax > 0 {
		quota = scanQuota
	} else {
		logger.Printf("Scan quota disabled")
	}
	scanQuotaMiddleware := middleware.NewScanQuotaMiddleware(quota, logger)
	adminAuth := middleware.NewAdminAuth(cfg.AdminJWTSecret, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Write([]byte(`{
			"service": "PhishGuard Scanner",
			"version": "1.0.0",
			"status": "running",
			"endpoints": {
				"scan": ["/scan/url", "/scan/email", "/scan/email/raw", "/scan/file"],
				"ip_status": "/ip/status",
				"health": "/health",
				"metrics": "/metrics",
				"admin": {
					"ips": "/admin/ips",
					"blocked_ips": "/admin/blocked-ips",
					"unblock": "/admin/unblock/{ip}",
					"scan_events": "/admin/scan-events",
					"recent_requests": "/admin/recent-requests"
				}
			}
		}`))
	})

	mux.HandleFunc("/scan/url", postOnly(scanHandler.ScanURL))
	mux.HandleFunc("/scan/email", postOnly(scanHandler.ScanEmail))
	mux.HandleFunc("/scan/email/raw", postOnly(scanHandler.ScanRawEmail))
	mux.HandleFunc("/scan/file", postOnly(scanHandler.ScanFile))
	mux.HandleFunc("/ip/status", scanHandler.IPStatus)

	mux.HandleFunc("/health", adminHandler.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/admin/ips", adminAuth.Protect(http.HandlerFunc(adminHandler.GetAllIPs)))
	mux.Handle("/admin/blocked-ips", adminAuth.Protect(http.HandlerFunc(adminHandler.GetBlockedIPs)))
	mux.Handle("/admin/unblock", adminAuth.Protect(http.HandlerFunc(adminHandler.UnblockIP)))
	mux.Handle("/admin/unblock/", adminAuth.Protect(http.HandlerFunc(adminHandler.UnblockIP)))
	mux.Handle("/admin/scan-events", adminAuth.Protect(http.HandlerFunc(adminHandler.GetScanEvents)))
	mux.Handle("/admin/recent-requests", adminAuth.Protect(http.HandlerFunc(adminHandler.GetRecentRequests)))

	var handler http.Handler = mux
	handler = scanQuotaMiddleware.Limit(handler)
	handler = ipFilterMiddleware.Filter(handler)
	handler = loggingMiddleware.Log(handler)
	handler = middleware.ResolveClientIP(cfg.TrustProxyHeaders)(handler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Printf("Starting PhishGuard on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("Server forced to shutdown: %v", err)
	}
	bgCancel()

	if err := tracker.Close(ctx); err != nil {
		logger.Printf("Warning: Final reputation flush incomplete: %v", err)
	}

	logger.Println("Server exited")
}

// openReputationStore picks the backend named by REPUTATION_STORE, falling
// back to the JSON file when the requested backend is unavailable.
func openReputationStore(cfg *config.Config, ipRepo *repository.IPReputationRepository, redisClient *redis.Client, redisOK bool, logger *log.Logger) reputation.Store {
	switch cfg.ReputationStore {
	case "memory":
		return reputation.NewMemoryStore()
	case "postgres":
		if ipRepo != nil {
			return ipRepo
		}
		logger.Printf("Warning: REPUTATION_STORE=postgres but database is unavailable, using %s", cfg.ReputationFile)
	case "redis":
		if redisOK {
			return repository.NewRedisReputationStore(redisClient)
		}
		logger.Printf("Warning: REPUTATION_STORE=redis but Redis is unavailable, using %s", cfg.ReputationFile)
	case "file":
	default:
		logger.Printf("Warning: unknown REPUTATION_STORE %q, using %s", cfg.ReputationStore, cfg.ReputationFile)
	}
	return reputation.NewFileStore(cfg.ReputationFile)
}

func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusMethodNotAllowed)
			w.Write([]byte(`{"error": "method not allowed"}`))
			return
		}
		next(w, r)
	}
}
