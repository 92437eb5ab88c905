package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"

	"github.com/AnshRaj112/diary-backend/internal/auth"
	"github.com/AnshRaj112/diary-backend/internal/config"
	"github.com/AnshRaj112/diary-backend/internal/database"
	"github.com/AnshRaj112/diary-backend/internal/handlers"
	"github.com/AnshRaj112/diary-backend/internal/logging"
	"github.com/AnshRaj112/diary-backend/internal/middleware"
	"github.com/AnshRaj112/diary-backend/internal/routes"
	"github.com/AnshRaj112/diary-backend/internal/services"
	"github.com/AnshRaj112/diary-backend/pkg/utils"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MongoDB: the connection itself is made lazily on the first request.
	mongoDB, err := database.NewMongo(cfg.MongoURI, cfg.MongoDatabase, cfg.EntriesCollection)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mongoDB.Disconnect(shutdownCtx); err != nil {
			log.Warn("failed to disconnect MongoDB", "error", err)
		}
	}()

	// The owner index is created when the first request opens the connection.
	mongoDB.OnConnect(func(ctx context.Context, coll *mongodriver.Collection) {
		if err := database.EnsureEntryIndexes(ctx, coll); err != nil {
			log.Warn("failed to ensure MongoDB indexes", "error", err)
			return
		}
		log.Info("MongoDB indexes ensured", "database", cfg.MongoDatabase, "collection", cfg.EntriesCollection)
	})

	// Field encryption at rest
	var cipher services.FieldCipher
	if cfg.EncryptionKey != "" {
		c, err := utils.NewCipher(cfg.EncryptionKey)
		if err != nil {
			return errors.Join(errors.New("ENCRYPTION_KEY is invalid (generate with: openssl rand -base64 32)"), err)
		}
		cipher = c
		log.Info("entry field encryption enabled")
	}
	store := services.NewMongoEntryStore(mongoDB, cipher)

	// PostgreSQL audit log
	var audit services.AuditRecorder = services.NopAudit{}
	if cfg.PostgresURI != "" {
		db, err := database.ConnectPostgres(cfg.PostgresURI)
		if err != nil {
			log.Warn("failed to connect to PostgreSQL, entry audit disabled", "error", err)
		} else {
			defer db.Close()
			audit = services.NewPostgresAudit(db)
			log.Info("entry audit log enabled")
		}
	}

	// Redis: shared rate limits and cross-instance entry events
	var redisClient *redis.Client
	if cfg.RedisURI != "" {
		client, err := database.ConnectRedis(cfg.RedisURI)
		if err != nil {
			log.Warn("failed to connect to Redis, using local rate limits and events", "error", err)
		} else {
			redisClient = client
			defer redisClient.Close()
			log.Info("Redis connected")
		}
	}
	broker := services.NewEntryBroker(services.NewEntryHub(), redisClient, log)
	go broker.Run(ctx)

	// Cloudinary attachment uploads
	var uploader services.AttachmentUploader
	if cfg.CloudinaryEnabled() {
		svc, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Warn("failed to initialize Cloudinary, attachment uploads disabled", "error", err)
		} else {
			uploader = svc
			log.Info("Cloudinary service initialized")
		}
	} else {
		log.Warn("Cloudinary credentials not found, attachment uploads disabled")
	}

	identity := auth.NewExtractor(cfg.JWTSecret)
	if !identity.Verifies() {
		log.Warn("JWT_SECRET not set, bearer tokens are decoded without signature verification")
	}

	// Setup router
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.IsProduction() {
		limiter := middleware.NewIPRateLimiter(rate.Limit(10), 30, 10*time.Minute)
		limiter.StartSweeper(time.Minute, ctx.Done())
		r.Use(middleware.SecurityHeaders)
		r.Use(limiter.Middleware)
		log.Info("production security enabled (security headers, per-IP rate limiting)")
	}
	if redisClient != nil {
		r.Use(middleware.RedisRateLimit(redisClient, log))
	}

	routes.SetupRoutes(r,
		handlers.NewEntryHandler(store, identity, audit, broker, log),
		handlers.NewAttachmentHandler(uploader, identity, log),
		handlers.NewEntryEventsHandler(broker, identity, cfg.AllowedOrigins, log),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("diary backend running", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
