package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	_ "github.com/redmonkez12/account-api/docs" // Swagger docs
	"github.com/redmonkez12/account-api/internal/auth"
	"github.com/redmonkez12/account-api/internal/config"
	"github.com/redmonkez12/account-api/internal/database"
	"github.com/redmonkez12/account-api/internal/email"
	httpServer "github.com/redmonkez12/account-api/internal/http"
	"github.com/redmonkez12/account-api/internal/logging"
	"github.com/redmonkez12/account-api/internal/media"
	"github.com/redmonkez12/account-api/internal/ratelimit"
	"github.com/redmonkez12/account-api/internal/user"
)

// @title           Account API
// @version         1.0
// @description     User accounts with local and Google login, rotating refresh tokens, profiles and avatars.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8001
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "api",
		Short:         "Account API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server (default)",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create the database schema and exit",
			RunE:  runMigrate,
		},
	)

	return rootCmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())

	db, err := database.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := database.CreateSchema(cmd.Context(), db); err != nil {
		return err
	}

	logger.Info("schema is up to date", "driver", cfg.Database.Driver)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_strategy", cfg.Auth.TokenStrategy,
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Initialize database connection
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cfg.Database.Driver == "sqlite" {
		if err := database.CreateSchema(ctx, db); err != nil {
			return err
		}
	}

	// Initialize Redis connection
	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	router, err := buildRouter(ctx, cfg, db, redisClient, logger)
	if err != nil {
		return err
	}

	// Initialize HTTP server
	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// buildRouter wires repositories, services and handlers
func buildRouter(ctx context.Context, cfg *config.Config, db *bun.DB, redisClient *redis.Client, logger *logging.Logger) (http.Handler, error) {
	userRepo := user.NewRepository(db)

	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.Auth.RateLimitPerWindow, cfg.Auth.RateLimitWindow)

	accessTokens, refreshTokens, err := auth.NewTokenServices(
		cfg.Auth.TokenStrategy,
		[]byte(cfg.Auth.AccessTokenSecret),
		[]byte(cfg.Auth.RefreshTokenSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token services: %w", err)
	}

	var images media.Store = media.Disabled{}
	if cfg.Storage.AccessKey != "" || cfg.Storage.Endpoint != "" {
		s3Store, err := media.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize image storage: %w", err)
		}
		images = s3Store
	} else {
		logger.Warn("image storage not configured, avatar uploads are disabled")
	}

	var notifier auth.Notifier
	if cfg.Email.Enabled() {
		notifier = email.NewService(cfg.Email, logger)
	}

	var verifier auth.IdentityVerifier
	if cfg.Google.ClientID != "" {
		verifier = auth.NewGoogleVerifier(cfg.Google.ClientID, cfg.Google.VerifyTimeout)
	}

	authService := auth.NewService(
		userRepo,
		auth.NewPasswordHasher(auth.DefaultPasswordCost),
		accessTokens,
		refreshTokens,
		verifier,
		notifier,
		logger,
		auth.Options{
			AccessTokenDuration:    cfg.Auth.AccessTokenDuration,
			RefreshTokenDuration:   cfg.Auth.RefreshTokenDuration,
			RevokeOnPasswordChange: cfg.Auth.RevokeOnPasswordChange,
		},
	)

	// Initialize HTTP handlers
	authHandler := auth.NewHandler(
		authService,
		images,
		rateLimiter,
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
		cfg.Server.MaxUploadBytes,
	)
	userHandler := user.NewHandler(
		user.NewService(userRepo, images, logger),
		cfg.Server.MaxUploadBytes,
	)

	return httpServer.NewRouter(cfg, httpServer.Handlers{
		Auth:           authHandler,
		AuthMiddleware: auth.NewMiddleware(authService),
		User:           userHandler,
		DB:             db,
	}, logger), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
