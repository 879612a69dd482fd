package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mrlokans/readtrack/internal/config"
	"github.com/mrlokans/readtrack/internal/document"
	"github.com/mrlokans/readtrack/internal/entities"
	"github.com/mrlokans/readtrack/internal/inbox"
)

// ImportCommand adds a local book file to the catalog.
type ImportCommand struct {
	FilePath     string
	Name         string
	DatabasePath string
	DryRun       bool
	SkipCheck    bool

	out io.Writer
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{out: os.Stdout}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to a .txt or .pdf book (required)")
	fs.StringVar(&cmd.Name, "name", "", "Display name (defaults to the file name)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show what would be imported without making changes")
	fs.BoolVar(&cmd.SkipCheck, "skip-check", false, "Import without verifying that the file decodes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a local book file into the catalog.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file ~/books/dune.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -file scan.pdf -name \"Lecture notes.pdf\" -dry-run\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *ImportCommand) Run() error {
	abs, err := filepath.Abs(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", cmd.FilePath)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", cmd.FilePath)
	}

	name := cmd.Name
	if name == "" {
		name = filepath.Base(abs)
	}
	locator := inbox.Locator(abs)
	ctx := context.Background()

	if !cmd.SkipCheck {
		doc, err := document.NewLoader(0).Load(ctx, locator, entities.FormatFromName(name))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.out, "Decoded %d characters", len([]rune(doc.Text)))
		if doc.Pages > 0 {
			fmt.Fprintf(cmd.out, " from %d pages", doc.Pages)
		}
		fmt.Fprintln(cmd.out)
	}

	if cmd.DryRun {
		fmt.Fprintf(cmd.out, "DRY RUN: would import %q from %s\n", name, locator)
		return nil
	}

	app, err := openApp(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer app.Close()

	book, err := app.Catalog.ImportBook(ctx, locator, name, "cli")
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.out, "Imported %q as book %s (%s)\n", book.Title, book.ID, book.Format)
	return nil
}
