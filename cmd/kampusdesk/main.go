// File path: cmd/kampusdesk/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kampusdesk/kampusdesk/internal/api"
	"github.com/kampusdesk/kampusdesk/internal/catalog"
	"github.com/kampusdesk/kampusdesk/internal/chat"
	"github.com/kampusdesk/kampusdesk/internal/common"
	"github.com/kampusdesk/kampusdesk/internal/config"
	"github.com/kampusdesk/kampusdesk/internal/embedding"
	"github.com/kampusdesk/kampusdesk/internal/ingest"
	"github.com/kampusdesk/kampusdesk/internal/kb"
	"github.com/kampusdesk/kampusdesk/internal/rag"
	"github.com/kampusdesk/kampusdesk/internal/retriever"
	"github.com/kampusdesk/kampusdesk/internal/vector"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	catalogPath := flag.String("catalog", "", "path to the document catalog database (overrides config)")
	flag.Parse()

	logger := common.Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("startup: config load failed", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}

	splitter, err := kb.NewSplitter(cfg.Chunker)
	if err != nil {
		logger.Error("startup: invalid chunker config", "error", err)
		os.Exit(1)
	}

	embedder, err := embedding.NewClient(cfg.Embedding)
	if err != nil {
		logger.Error("startup: embedding client failed", "error", err)
		os.Exit(1)
	}

	store := vector.NewClient(cfg.Qdrant)
	completer := chat.NewClient(cfg.Chat)

	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		logger.Error("startup: catalog open failed", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}
	defer cat.Close()

	pipeline := ingest.NewPipeline(store, embedder, kb.PDFExtractor{}, splitter, cat)
	retr := retriever.New(store, embedder, cfg.Retrieval)
	service := rag.NewService(retr, completer, store, cat, cfg.Tenants, cfg.ContextBudget)
	server := api.NewServer(pipeline, service)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("startup: listening", "addr", cfg.Addr, "qdrant", cfg.Qdrant.URL, "model", cfg.Chat.Model)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown: signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown: forced", "error", err)
	}
}
