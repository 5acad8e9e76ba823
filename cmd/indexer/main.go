package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"billing-rag/internal/app"
	"billing-rag/internal/catalog"
	"billing-rag/internal/httputil"
	"billing-rag/internal/queue"
)

var rootCmd = &cobra.Command{
	Use:           "indexer",
	Short:         "Index billing code catalogs into the vector store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Consume index tasks from NATS",
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := app.BuildIndexer(cmd.Context(), true)
		if err != nil {
			return fmt.Errorf("failed to build dependencies: %w", err)
		}
		defer deps.Close()
		deps.Log.Info("indexer worker starting")

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return deps.Queue.Worker(ctx, queue.TaskTypeIndex, func(ctx context.Context, task queue.Task) error {
				return handleIndex(ctx, deps.Indexer, task)
			})
		})
		g.Go(func() error {
			return httputil.ServeHealth(ctx, deps.Log, deps.Config.HealthPort, "indexer")
		})
		return g.Wait()
	},
}

var (
	importFile  string
	importBatch int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Embed and upsert a CSV catalog (code,description,unitPrice[,keywords])",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(importFile)
		if err != nil {
			return err
		}
		defer f.Close()

		entries, err := catalog.ReadCSV(f)
		if err != nil {
			return fmt.Errorf("parse %s: %w", importFile, err)
		}
		if len(entries) == 0 {
			return fmt.Errorf("%s has no entries", importFile)
		}

		deps, err := app.BuildIndexer(cmd.Context(), false)
		if err != nil {
			return fmt.Errorf("failed to build dependencies: %w", err)
		}
		defer deps.Close()
		deps.Indexer.BatchSize = importBatch

		n, err := deps.Indexer.Index(cmd.Context(), entries)
		if err != nil {
			return fmt.Errorf("indexed %d of %d entries: %w", n, len(entries), err)
		}
		deps.Log.Info("catalog imported", "file", importFile, "count", n, "index", deps.Config.VectorIndex)
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d codes into %s\n", n, deps.Config.VectorIndex)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV catalog to import")
	importCmd.Flags().IntVar(&importBatch, "batch", catalog.DefaultBatchSize, "entries per embedding call")
	_ = importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(serveCmd, importCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "indexer:", err)
		os.Exit(1)
	}
}

// handleIndex indexes the entries carried by an index task. Returning an
// error hands the task back to the queue for a delayed retry.
func handleIndex(ctx context.Context, ix *catalog.Indexer, task queue.Task) error {
	var batch catalog.Batch
	if err := json.Unmarshal(task.Payload, &batch); err != nil {
		return fmt.Errorf("decode index task %s: %w", task.ID, err)
	}
	if _, err := ix.Index(ctx, batch.Codes); err != nil {
		return fmt.Errorf("index task %s: %w", task.ID, err)
	}
	return nil
}
