package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline-cli/internal/core/domain"
)

var watchFlag bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Reconcile configured sources into the index",
	Long: `Walks the configured sources and reconciles every unit against the
tracker store. Unchanged content is skipped entirely; new and changed
content is chunked, embedded and indexed; content that disappeared from a
complete snapshot is retired.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "keep running and re-ingest on file changes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestor == nil {
		if err := setup(); err != nil {
			return err
		}
	}
	if sourceAdapter == nil {
		return errors.New("no sources configured; add [sources] paths to the config file")
	}
	defer sourceAdapter.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ingestOnce(ctx, cmd); err != nil {
		return err
	}

	if !watchFlag {
		return nil
	}
	if !sourceAdapter.Capabilities().SupportsWatch {
		return fmt.Errorf("source %s does not support watching", sourceAdapter.Name())
	}
	return watchLoop(ctx, cmd)
}

// ingestOnce drains one full snapshot from the adapter and reconciles it.
func ingestOnce(ctx context.Context, cmd *cobra.Command) error {
	cmd.Printf("Ingesting from %s...\n", sourceAdapter.Name())

	unitCh, errCh := sourceAdapter.Units(ctx)
	var units []domain.SourceUnit
	for unit := range unitCh {
		units = append(units, unit)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("collecting units: %w", err)
	}

	report, err := ingestor.Reconcile(ctx, units, sourceAdapter.Capabilities().SnapshotComplete)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	printReport(cmd, report)
	if report.HasFailures() {
		return fmt.Errorf("%d units failed", len(report.Failures))
	}
	return nil
}

// watchLoop reconciles single units as the adapter pushes changes.
// Watch events are never complete snapshots, so deletions are not inferred
// here; the next full ingest picks those up.
func watchLoop(ctx context.Context, cmd *cobra.Command) error {
	units, err := sourceAdapter.Watch(ctx)
	if err != nil {
		return fmt.Errorf("starting watch: %w", err)
	}
	cmd.Println("Watching for changes (ctrl-c to stop)...")

	for {
		select {
		case <-ctx.Done():
			cmd.Println("\nWatch stopped.")
			return nil
		case unit, ok := <-units:
			if !ok {
				return nil
			}
			report, err := ingestor.Reconcile(ctx, []domain.SourceUnit{unit}, false)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				cmd.PrintErrf("reconcile %s: %v\n", unit.SourceID, err)
				continue
			}
			if report.HasFailures() {
				cmd.PrintErrf("failed: %s: %v\n", unit.SourceID, report.Failures[0].Err)
			} else {
				cmd.Printf("updated: %s\n", unit.SourceID)
			}
		}
	}
}

func printReport(cmd *cobra.Command, report *domain.IngestionReport) {
	elapsed := report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)
	cmd.Printf("Run %s finished in %s\n", report.RunID, elapsed)
	cmd.Printf("  new: %d  changed: %d  unchanged: %d  deleted: %d\n",
		report.New, report.Changed, report.Unchanged, report.Deleted)
	for _, failure := range report.Failures {
		cmd.PrintErrf("  failed: %s: %v\n", failure.SourceID, failure.Err)
	}
}
