package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/readtrack/internal/config"
	"github.com/mrlokans/readtrack/internal/scheduler"
)

// RebuildIndexCommand rebuilds the daily activity index from the store.
type RebuildIndexCommand struct {
	DatabasePath string

	out io.Writer
}

func NewRebuildIndexCommand() *RebuildIndexCommand {
	return &RebuildIndexCommand{out: os.Stdout}
}

func (cmd *RebuildIndexCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("rebuild-index", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s rebuild-index [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Rescan every dated key and rebuild the calendar index.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *RebuildIndexCommand) Run() error {
	app, err := openApp(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close()

	// Same path as the nightly reconcile, so the run is audited.
	reconciler := scheduler.NewIndexReconciler(scheduler.ReconcilerConfig{
		Index: app.Index,
		Audit: app.Audit,
	})
	if err := reconciler.RunNow(context.Background(), "cli"); err != nil {
		return err
	}

	days, err := app.Index.Days(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "Rebuilt daily index: %d days\n", len(days))
	return nil
}
