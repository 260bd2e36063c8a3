package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/app"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/gcs"
)

// Verifies that every document row carries the canonical storage key for its
// digest and, when the blob store is configured, that the blob actually
// exists. Fixes drifted keys unless -dry-run is set.
func main() {
	var dryRun bool
	var limit int
	var workers int
	flag.BoolVar(&dryRun, "dry-run", false, "report drift without fixing")
	flag.IntVar(&limit, "limit", 0, "max documents to scan (0 = all)")
	flag.IntVar(&workers, "workers", 4, "concurrent blob checks")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	q := application.DB.WithContext(ctx).Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var docs []*domain.Document
	if err := q.Find(&docs).Error; err != nil {
		fmt.Printf("load documents: %v\n", err)
		os.Exit(1)
	}

	var fixed, missing, clean atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			want := gcs.DocumentKey(doc.Digest)
			if doc.StorageKey != want {
				if dryRun {
					fmt.Printf("[dry-run] document %s storage_key %q -> %q\n", doc.ID, doc.StorageKey, want)
				} else if err := application.DB.WithContext(gctx).
					Model(&domain.Document{}).
					Where("id = ?", doc.ID).
					Update("storage_key", want).Error; err != nil {
					return fmt.Errorf("fix document %s: %w", doc.ID, err)
				}
				fixed.Add(1)
			} else {
				clean.Add(1)
			}

			if application.Services.Blobs != nil {
				ok, err := application.Services.Blobs.Exists(gctx, want)
				if err != nil {
					return fmt.Errorf("check blob %s: %w", want, err)
				}
				if !ok {
					missing.Add(1)
					fmt.Printf("document %s has no blob at %s\n", doc.ID, want)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Printf("backfill failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("scanned=%d clean=%d fixed=%d missing_blobs=%d dry_run=%v\n",
		len(docs), clean.Load(), fixed.Load(), missing.Load(), dryRun)
}
