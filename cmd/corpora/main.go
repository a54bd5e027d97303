// -----------------------------------------------------------------------
// Corpora - document ingestion pipeline for per-domain vector search
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/corpora/internal/common"
	"github.com/ternarybob/corpora/internal/services/chunker"
	"github.com/ternarybob/corpora/internal/services/embeddings"
	"github.com/ternarybob/corpora/internal/services/parsers"
	"github.com/ternarybob/corpora/internal/services/pipeline"
	"github.com/ternarybob/corpora/internal/services/textnorm"
	"github.com/ternarybob/corpora/internal/services/vectorstore"
	"github.com/ternarybob/corpora/internal/storage/badger"
)

func main() {
	configFile := flag.String("config", "corpora.toml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	sweepOnce := flag.Bool("sweep", false, "Run one pending-document sweep and exit")
	flag.Parse()

	version := common.LoadVersionFromFile()
	if *showVersion {
		fmt.Printf("corpora %s\n", common.GetFullVersion())
		return
	}

	var paths []string
	if _, err := os.Stat(*configFile); err == nil {
		paths = append(paths, *configFile)
	}
	config, err := common.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(version)

	logger.Info().
		Str("version", version).
		Str("environment", config.Environment).
		Msg("Starting corpora")

	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open document store")
		os.Exit(1)
	}
	defer db.Close()

	documentStorage := badger.NewDocumentStorage(db, logger)
	normalizer := textnorm.NewNormalizer()
	parserService := parsers.NewService(normalizer, logger)
	chunkService := chunker.NewChunker(config.Chunking.ChunkSize, config.Chunking.ChunkOverlap)
	embedder := embeddings.NewOpenAIService(config.Embedding, logger)
	vectors := vectorstore.NewQdrantService(config.Qdrant, logger)

	pipelineService := pipeline.NewService(
		documentStorage,
		parserService,
		normalizer,
		chunkService,
		embedder,
		vectors,
		config.Processing,
		logger,
	)

	ctx := context.Background()
	if !embedder.IsAvailable(ctx) {
		logger.Warn().Str("base_url", config.Embedding.BaseURL).Msg("Embedding endpoint not reachable")
	}
	if !vectors.IsAvailable(ctx) {
		logger.Warn().Str("url", config.Qdrant.URL).Msg("Vector database not reachable")
	}

	scheduler := pipeline.NewScheduler(pipelineService, config.Processing.Limit, logger)

	if *sweepOnce {
		result := <-scheduler.RunNow()
		if result == nil {
			os.Exit(1)
		}
		logger.Info().
			Int("processed", result.Processed).
			Int("failed", result.Failed).
			Msg("Sweep finished")
		return
	}

	if config.Processing.Enabled {
		if err := scheduler.Start(config.Processing.Schedule); err != nil {
			logger.Fatal().Err(err).Str("schedule", config.Processing.Schedule).Msg("Failed to start scheduler")
			os.Exit(1)
		}
	} else {
		logger.Info().Msg("Background processing disabled")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")
	scheduler.Stop()
}
