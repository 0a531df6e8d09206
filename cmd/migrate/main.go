// Command migrate copies every collection from one storage driver to another.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idem-lexis/lexis-api/config"
	"github.com/idem-lexis/lexis-api/internal/bootstrap"
	"github.com/idem-lexis/lexis-api/internal/logging"
	"github.com/idem-lexis/lexis-api/internal/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	from   string
	to     string
	models []string
	dryRun bool
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy stored documents between storage drivers",
		Long: `Copy every collection from one storage driver to another, for example
from Firestore to Mongo. Documents already present in the destination are
skipped, so an interrupted migration can be re-run.

Connection settings come from the same environment variables as the API.`,
		Example:      "  migrate --from firestore --to mongo --dry-run",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "source driver (firestore, mongo, postgres, memory)")
	cmd.Flags().StringVar(&opts.to, "to", "", "destination driver")
	cmd.Flags().StringSliceVar(&opts.models, "models", nil, "collections to copy (default all)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "read and count without writing")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	if opts.from == opts.to {
		return fmt.Errorf("--from and --to must differ")
	}
	models, err := parseModels(opts.models)
	if err != nil {
		return err
	}

	cfg := config.Read()
	logger, err := logging.Init(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	src, err := bootstrap.OpenStorage(ctx, opts.from, cfg, nil)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()
	dst, err := bootstrap.OpenStorage(ctx, opts.to, cfg, nil)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	defer dst.Close()

	logger.Info("migration started",
		zap.String("from", src.Name()), zap.String("to", dst.Name()), zap.Bool("dry_run", opts.dryRun))
	results, err := storage.Copy(ctx, src, dst, models, opts.dryRun)
	report(cmd, results, opts.dryRun)
	return err
}

func parseModels(names []string) ([]storage.TargetModelType, error) {
	if len(names) == 0 {
		return storage.AllModels(), nil
	}
	out := make([]storage.TargetModelType, 0, len(names))
	for _, n := range names {
		m := storage.TargetModelType(strings.TrimSpace(n))
		if !m.Valid() {
			return nil, fmt.Errorf("unknown model %q", n)
		}
		out = append(out, m)
	}
	return out, nil
}

func report(cmd *cobra.Command, results []storage.CopyResult, dryRun bool) {
	w := cmd.OutOrStdout()
	for _, r := range results {
		fmt.Fprintf(w, "%-16s read=%d written=%d skipped=%d\n", r.Model, r.Read, r.Written, r.Skipped)
	}
	if dryRun {
		fmt.Fprintln(w, "dry run: nothing was written")
	}
}
