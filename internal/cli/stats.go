package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/readtrack/internal/config"
	"github.com/mrlokans/readtrack/internal/stats"
)

// StatsCommand prints the reading statistics summary.
type StatsCommand struct {
	DatabasePath string
	JSON         bool

	out io.Writer
}

func NewStatsCommand() *StatsCommand {
	return &StatsCommand{out: os.Stdout}
}

func (cmd *StatsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.BoolVar(&cmd.JSON, "json", false, "Print the raw summary as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s stats [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print total app time, reading time and finished books.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *StatsCommand) Run() error {
	app, err := openApp(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := app.Stats.Summary(context.Background())
	if err != nil {
		return err
	}

	if cmd.JSON {
		enc := json.NewEncoder(cmd.out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Fprintln(cmd.out, "Reading Stats")
	fmt.Fprintln(cmd.out, "=============")
	fmt.Fprintf(cmd.out, "App time:          %s\n", stats.FormatDuration(summary.TotalAppSeconds))
	fmt.Fprintf(cmd.out, "Reading time:      %s\n", stats.FormatDuration(summary.TotalReadingSeconds))
	fmt.Fprintf(cmd.out, "Average per day:   %s (%d days)\n",
		stats.FormatDuration(uint64(summary.AverageDailyReadingSeconds)), summary.DaysWithReadingRecord)
	fmt.Fprintf(cmd.out, "Finished books:    %d\n", summary.FinishedBookCount)
	if summary.LastSessionEnd != nil {
		fmt.Fprintf(cmd.out, "Last session:      %s\n", summary.LastSessionEnd.Local().Format(time.DateTime))
	} else {
		fmt.Fprintln(cmd.out, "Last session:      never")
	}
	return nil
}
