// Command ingest partitions every matching file under INPUT_DIR, writes the
// resulting records under OUTPUT_DIR and inserts them into the vector store.
//
// With -load it skips partitioning and bulk-inserts previously written
// record files instead.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/app"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/config"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/ledger"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	flag.StringVar(&cfg.InputDir, "input", cfg.InputDir, "directory to scan for documents")
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory for record files")
	flag.StringVar(&cfg.WeaviateCollection, "collection", cfg.WeaviateCollection, "vector store collection")
	flag.IntVar(&cfg.WorkerCount, "workers", cfg.WorkerCount, "documents processed in parallel")
	force := flag.Bool("force", false, "reprocess documents the ledger marks as unchanged")
	load := flag.Bool("load", false, "insert existing record files from -output instead of partitioning")
	deleteCollection := flag.Bool("delete-collection", false, "drop the collection before ingesting")
	ledgerList := flag.Bool("ledger-list", false, "print the ingest ledger and exit")
	forget := flag.String("forget", "", "comma-separated input paths to drop from the ledger before ingesting")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *ledgerList {
		if err := listLedger(ctx, cfg, log); err != nil {
			log.Error("failed to list ledger", "error", err)
			os.Exit(1)
		}
		return
	}

	if *deleteCollection {
		if err := dropCollection(ctx, cfg, log); err != nil {
			log.Error("failed to delete collection", "collection", cfg.WeaviateCollection, "error", err)
			os.Exit(1)
		}
	}

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	if *load {
		if components.Weaviate == nil {
			log.Error("-load requires WEAVIATE_URL")
			os.Exit(1)
		}
		n, err := app.Reload(ctx, cfg.OutputDir, components.Weaviate, cfg.WeaviateCollection, cfg.WeaviateBatchSize)
		if err != nil {
			log.Error("reload failed", "inserted", n, "error", err)
			os.Exit(1)
		}
		log.Info("reload complete", "dir", cfg.OutputDir, "collection", cfg.WeaviateCollection, "records", n)
		return
	}

	led, err := components.OpenLedger(ctx, cfg)
	if err != nil {
		log.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}
	if led == nil && *forget != "" {
		log.Error("-forget requires LEDGER_PATH")
		os.Exit(1)
	}
	if led != nil {
		defer led.Close()
		if *deleteCollection {
			if err := led.Reset(ctx); err != nil {
				log.Error("failed to reset ledger", "error", err)
				os.Exit(1)
			}
		}
		if *forget != "" {
			if err := app.ForgetPaths(ctx, led, strings.Split(*forget, ",")); err != nil {
				log.Error("failed to update ledger", "error", err)
				os.Exit(1)
			}
		}
	}
	components.Ingestor.Reprocess = *force

	docs, err := app.Discover(cfg.InputDir, cfg.InputPatterns)
	if err != nil {
		log.Error("failed to list input", "error", err)
		os.Exit(1)
	}
	log.Info("starting batch", "input", cfg.InputDir, "documents", len(docs), "workers", cfg.WorkerCount)

	results := components.Ingestor.RunBatch(ctx, docs, cfg.WorkerCount)
	if failed := app.Summarize(log, results); failed > 0 {
		os.Exit(1)
	}
}

func dropCollection(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.WeaviateURL == "" {
		log.Warn("-delete-collection ignored, WEAVIATE_URL not set")
		return nil
	}
	store, err := app.NewStore(cfg, log)
	if err != nil {
		return err
	}
	return store.DeleteCollection(ctx, cfg.WeaviateCollection)
}

func listLedger(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.LedgerPath == "" {
		return errors.New("LEDGER_PATH not set")
	}
	led, err := ledger.Open(ctx, cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer led.Close()
	n, err := app.ListLedger(ctx, log, led)
	if err != nil {
		return err
	}
	log.Info("ledger listed", "path", cfg.LedgerPath, "entries", n)
	return nil
}
