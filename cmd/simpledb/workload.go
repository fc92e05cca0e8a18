package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"txdb/buffer"
	"txdb/file"
	"txdb/logging"
	"txdb/server"
	"txdb/transaction"
)

const counterFile = "counter"

var (
	workersArg    int
	incrementsArg int
)

func newWorkloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workload",
		Short: "Increment a shared counter from concurrent transactions",
		Args:  cobra.NoArgs,
		RunE:  runWorkload,
	}
	cmd.Flags().IntVarP(&workersArg, "workers", "w", 4, "number of concurrent clients")
	cmd.Flags().IntVarP(&incrementsArg, "increments", "n", 100, "increments per client")
	return cmd
}

func runWorkload(cmd *cobra.Command, _ []string) error {
	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	block, err := counterBlock(db)
	if err != nil {
		return err
	}
	before, err := readCounter(db, block)
	if err != nil {
		return err
	}

	var retries atomic.Int64
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workersArg; w++ {
		g.Go(func() error {
			for n := 0; n < incrementsArg; n++ {
				if err := increment(ctx, db, block, &retries); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	after, err := readCounter(db, block)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "counter %d -> %d in %s, %d retries\n", before, after, time.Since(start).Round(time.Millisecond), retries.Load())
	return printMetrics(cmd)
}

// counterBlock returns the block holding the counter, creating it on first use.
func counterBlock(db *server.DB) (file.Block, error) {
	tx, err := db.NewTx()
	if err != nil {
		return file.Block{}, err
	}
	defer tx.Close()

	size, err := tx.Size(counterFile)
	if err != nil {
		return file.Block{}, err
	}
	block := file.NewBlock(counterFile, 0)
	if size == 0 {
		if block, err = tx.Append(counterFile, buffer.ZeroFormatter); err != nil {
			return file.Block{}, err
		}
	}
	return block, tx.Commit()
}

func readCounter(db *server.DB, block file.Block) (int32, error) {
	tx, err := db.NewTx()
	if err != nil {
		return 0, err
	}
	defer tx.Close()

	if err := tx.Pin(block); err != nil {
		return 0, err
	}
	v, err := tx.GetInt(block, 0)
	if err != nil {
		return 0, err
	}
	return v, tx.Commit()
}

// increment adds one to the counter, starting over in a new transaction
// whenever a lock or buffer wait is aborted.
func increment(ctx context.Context, db *server.DB, block file.Block, retries *atomic.Int64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := tryIncrement(db, block)
		if err == nil {
			return nil
		}
		if !errors.Is(err, transaction.ErrLockAbort) && !errors.Is(err, buffer.ErrBufferAbort) {
			return err
		}

		retries.Add(1)
		logging.L().Debug("increment aborted, retrying", zap.Error(err))
		time.Sleep(time.Duration(rand.Int63n(int64(20 * time.Millisecond))))
	}
}

func tryIncrement(db *server.DB, block file.Block) error {
	tx, err := db.NewTx()
	if err != nil {
		return err
	}
	// Close rolls back a transaction that did not commit.
	defer tx.Close()

	if err := tx.Pin(block); err != nil {
		return err
	}
	v, err := tx.GetInt(block, 0)
	if err != nil {
		return err
	}
	if err := tx.SetInt(block, 0, v+1); err != nil {
		return err
	}
	return tx.Commit()
}

func printMetrics(cmd *cobra.Command) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "simpledb_") {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		fmt.Fprintf(out, "%-32s %g\n", mf.GetName(), total)
	}
	return nil
}
