package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/labelwatch/compliance-cli/internal/adapter"
)

var (
	batchFile  string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Evaluate products from a JSONL file of candidate payloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(batchFile)
		if err != nil {
			return eris.Wrap(err, "open batch file")
		}
		defer f.Close()

		ev, st, err := initEvaluator(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		g, ctx := errgroup.WithContext(ctx)
		maxConcurrent := cfg.Batch.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 1
		}
		g.SetLimit(maxConcurrent)

		var processed, failed, recorded atomic.Int64

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		lineNo := 0
		for scanner.Scan() {
			if batchLimit > 0 && lineNo >= batchLimit {
				break
			}
			lineNo++
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())

			g.Go(func() error {
				var payload adapter.Payload
				if err := json.Unmarshal(line, &payload); err != nil {
					zap.L().Warn("batch: skipping malformed line", zap.Error(err))
					failed.Add(1)
					return nil
				}
				result, err := ev.Evaluate(ctx, &payload)
				if err != nil {
					zap.L().Error("batch: evaluation failed",
						zap.String("product", payload.ProductID),
						zap.Error(err),
					)
					failed.Add(1)
					return nil
				}
				processed.Add(1)
				if result.HistoryRecorded {
					recorded.Add(1)
				}
				return nil
			})
		}
		if err := scanner.Err(); err != nil {
			return eris.Wrap(err, "read batch file")
		}

		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("processed %d, failed %d, history recorded %d\n",
			processed.Load(), failed.Load(), recorded.Load())
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "path to JSONL payload file (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of payloads to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
