package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"swotplan/api/internal/app"
	"swotplan/api/internal/auth"
	"swotplan/api/internal/cache"
	"swotplan/api/internal/config"
	"swotplan/api/internal/export"
	"swotplan/api/internal/search"
	"swotplan/api/internal/store"
	"swotplan/api/internal/telemetry"
	"swotplan/api/internal/util"
)

var version = "dev"

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "api",
	Short:         "SWOT workshop API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		zapConfig := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = zapcore.InfoLevel
		}
		zapConfig.Level = zap.NewAtomicLevelAt(level)
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Apply migrations and serve the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
			if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
				return fmt.Errorf("migrations failed: %w", err)
			}
			logger.Info("migrations applied", zap.String("dir", cfg.MigrationsDir))
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
			rolledBack, err := store.RollbackLast(ctx, db, cfg.MigrationsDir)
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			if rolledBack == "" {
				logger.Info("nothing to roll back")
				return nil
			}
			logger.Info("migration rolled back", zap.String("version", rolledBack))
			return nil
		})
	},
}

var (
	tokenName    string
	tokenRole    string
	tokenPlanID  string
	tokenGroupID string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue a bearer token for the API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject := strings.TrimSpace(args[0])
		name := tokenName
		if name == "" {
			name = subject
		}
		claims := auth.NewClaims(subject, name, tokenRole, util.NewID("tok"), tokenTTL)
		claims.PlanID = tokenPlanID
		claims.GroupID = tokenGroupID
		token, err := auth.IssueToken([]byte(cfg.JWTSecret), claims)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Push every plan to the search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
			if strings.TrimSpace(cfg.MeiliURL) == "" {
				return errors.New("meilisearch is not configured")
			}
			meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
			defer meili.Close()

			service := app.New(cfg, store.NewPostgresStore(db), app.WithSearch(search.NewService(meili, search.NewPgFTS(db))))
			count, err := service.Reindex(ctx)
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}
			logger.Info("reindex complete", zap.Int("plans", count))
			return nil
		})
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name (defaults to the subject)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "respondent", "viewer, respondent, facilitator or admin")
	tokenCmd.Flags().StringVar(&tokenPlanID, "plan", "", "restrict the token to one plan")
	tokenCmd.Flags().StringVar(&tokenGroupID, "group", "", "restrict the token to one group")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 7*24*time.Hour, "token lifetime")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd, reindexCmd)
}

func withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()
	return fn(ctx, db)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "swotplan-api", version)
	if err != nil {
		return fmt.Errorf("tracing setup failed: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown error", zap.Error(err))
		}
	}()

	return withDB(ctx, func(ctx context.Context, db *sql.DB) error {
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}

		var opts []app.Option

		var meiliClient *search.Meili
		if strings.TrimSpace(cfg.MeiliURL) != "" {
			meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
			defer meiliClient.Close()
		}
		opts = append(opts, app.WithSearch(search.NewService(meiliClient, search.NewPgFTS(db))))

		if strings.TrimSpace(cfg.RedisURL) != "" {
			redisStore, err := cache.NewRedisStore(cfg.RedisURL)
			if err != nil {
				logger.Warn("redis unavailable, caching progress in memory", zap.Error(err))
			} else {
				logger.Info("using redis for the progress cache")
				defer redisStore.Close()
				opts = append(opts, app.WithCache(redisStore))
			}
		}

		if strings.TrimSpace(cfg.MinioEndpoint) != "" {
			minioStore, err := export.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
			if err != nil {
				logger.Warn("object storage unavailable, reports will be streamed", zap.Error(err))
			} else {
				opts = append(opts, app.WithArtifacts(minioStore))
			}
		}

		service := app.New(cfg, store.NewPostgresStore(db), opts...)
		httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.RateLimitRPS, cfg.RateLimitBurst)
		server := &http.Server{
			Addr:              cfg.Addr,
			Handler:           httpServer.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("swotplan API listening", zap.String("addr", cfg.Addr), zap.String("version", version))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
		return nil
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
