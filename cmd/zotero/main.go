// Command zotero ingests the attachments of a Zotero library: every
// collection not on the skip list is listed, each attachment is downloaded
// and run through the pipeline, and records are written under
// OUTPUT_DIR/<collection>/.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/app"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/config"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/pipeline"
	"github.com/cytgenkidu/AutoAudit-AI-Unstructure/internal/zotero"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory for record files")
	flag.StringVar(&cfg.WeaviateCollection, "collection", cfg.WeaviateCollection, "vector store collection")
	flag.IntVar(&cfg.WorkerCount, "workers", cfg.WorkerCount, "documents processed in parallel")
	force := flag.Bool("force", false, "reprocess documents the ledger marks as unchanged")
	list := flag.Bool("list", false, "print the attachments that would be ingested and exit")
	flag.Parse()

	if err := cfg.ValidateZotero(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := zotero.NewClient(zotero.Config{
		LibraryID:   cfg.ZoteroLibraryID,
		LibraryType: cfg.ZoteroLibraryType,
		APIKey:      cfg.ZoteroAPIKey,
	})
	if err != nil {
		log.Error("invalid zotero configuration", "error", err)
		os.Exit(1)
	}

	var file *zotero.CollectionsFile
	if cfg.ZoteroCollectionsFile != "" {
		if file, err = zotero.LoadCollectionsFile(cfg.ZoteroCollectionsFile); err != nil {
			log.Error("failed to load collections file", "path", cfg.ZoteroCollectionsFile, "error", err)
			os.Exit(1)
		}
	}
	filter := zotero.NewFilter(cfg.ZoteroSkipCollections, file)

	atts, err := pipeline.Retry(ctx, func(ctx context.Context) ([]zotero.Attachment, error) {
		return client.Attachments(ctx, filter, cfg.ZoteroNameField)
	})
	if err != nil {
		log.Error("failed to list attachments", "error", err)
		os.Exit(1)
	}
	log.Info("listed library", "library", cfg.ZoteroLibraryID, "attachments", len(atts))

	if *list {
		for _, att := range atts {
			log.Info("attachment", "collection", att.Collection, "item", att.ItemKey, "file", att.FileKey, "name", att.Filename())
		}
		return
	}

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	led, err := components.OpenLedger(ctx, cfg)
	if err != nil {
		log.Error("failed to open ledger", "error", err)
		os.Exit(1)
	}
	if led != nil {
		defer led.Close()
	}
	components.Ingestor.Reprocess = *force

	docs := app.AttachmentDocuments(client, atts)
	results := components.Ingestor.RunBatch(ctx, docs, cfg.WorkerCount)
	if failed := app.Summarize(log, results); failed > 0 {
		os.Exit(1)
	}
}
