package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/kbridge/internal/ai"
	"github.com/xxxsen/kbridge/internal/chunker"
	"github.com/xxxsen/kbridge/internal/config"
	"github.com/xxxsen/kbridge/internal/db"
	"github.com/xxxsen/kbridge/internal/extractor"
	"github.com/xxxsen/kbridge/internal/filestore"
	"github.com/xxxsen/kbridge/internal/handler"
	"github.com/xxxsen/kbridge/internal/job"
	"github.com/xxxsen/kbridge/internal/middleware"
	"github.com/xxxsen/kbridge/internal/repo"
	"github.com/xxxsen/kbridge/internal/schedule"
	"github.com/xxxsen/kbridge/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "kbridge",
		Short: "kbridge knowledge ingestion and retrieval server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run kbridge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	chunkRepo := repo.NewChunkRepo(conn)
	orphanRepo := repo.NewOrphanBlobRepo(conn)

	blobStore, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	providerArgs := cfg.AI.Data
	if providerArgs == nil {
		providerArgs = cfg.AI
	}
	provider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	splitter := chunker.New(cfg.Chunk.Size, cfg.Chunk.Overlap)
	extract := extractor.NewRegistry()

	ingestService := service.NewIngestService(chunkRepo, orphanRepo, blobStore, embedder, extract, splitter)
	searchService := service.NewSearchService(chunkRepo, embedder, cfg.Search.DefaultLimit, cfg.Search.CandidateFactor)
	documentService := service.NewDocumentService(chunkRepo, orphanRepo, blobStore, embedder, splitter)
	historyService := service.NewHistoryService(chunkRepo)

	deps := handler.RouterDeps{
		Ingest:       handler.NewIngestHandler(ingestService),
		Search:       handler.NewSearchHandler(searchService),
		Documents:    handler.NewDocumentHandler(documentService),
		History:      handler.NewHistoryHandler(historyService),
		JWTSecret:    []byte(cfg.JWTSecret),
		AuthDisabled: cfg.AuthDisabled,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewOrphanBlobCleanupJob(orphanRepo, blobStore), cfg.OrphanSweep); err != nil {
		return fmt.Errorf("schedule orphan cleanup: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
