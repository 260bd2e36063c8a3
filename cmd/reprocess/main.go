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
)

// Re-runs resolution and derivation for documents whose extraction is stored
// but which never produced a commitment (a downstream failure rolled the
// derive transaction back). No extraction cost is incurred.
func main() {
	var dryRun bool
	var limit int
	var workers int
	flag.BoolVar(&dryRun, "dry-run", false, "list candidates without reprocessing")
	flag.IntVar(&limit, "limit", 0, "max documents to reprocess (0 = all)")
	flag.IntVar(&workers, "workers", 2, "concurrent reprocess calls")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	q := application.DB.WithContext(ctx).
		Where("extracted_at IS NOT NULL").
		Where(`NOT EXISTS (
			SELECT 1 FROM document_links l
			WHERE l.document_id = documents.id
			  AND l.entity_type = ? AND l.link_type = ?
		)`, domain.EntityTypeCommitment, domain.LinkTypeSource).
		Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var docs []*domain.Document
	if err := q.Find(&docs).Error; err != nil {
		fmt.Printf("load documents: %v\n", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Println("nothing to reprocess")
		return
	}

	var ok, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, doc := range docs {
		doc := doc
		if dryRun {
			fmt.Printf("[dry-run] would reprocess document %s (%s)\n", doc.ID, doc.DeclaredType)
			continue
		}
		g.Go(func() error {
			graph, err := application.Services.Pipeline.Reprocess(gctx, doc.ID)
			if err != nil {
				failed.Add(1)
				fmt.Printf("document %s: %v\n", doc.ID, err)
				return nil
			}
			ok.Add(1)
			fmt.Printf("document %s -> commitment %s (priority %d)\n",
				doc.ID, graph.Commitment.ID, graph.Commitment.Priority)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Printf("reprocess failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("candidates=%d reprocessed=%d failed=%d dry_run=%v\n",
		len(docs), ok.Load(), failed.Load(), dryRun)
}
