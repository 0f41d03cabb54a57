// Package cli implements the sapsync command line: one-off syncs, the
// finance refresh and schema migrations.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/sapsync/internal/customers"
	"github.com/odyssey-erp/sapsync/internal/documents"
	"github.com/odyssey-erp/sapsync/internal/syncer"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitFatal = 1
	ExitUsage = 2
)

// KindAll runs every document kind in order.
const KindAll = "all"

// SyncRunner executes sync runs. *syncer.Service satisfies it.
type SyncRunner interface {
	Run(ctx context.Context, kind documents.Kind, opts syncer.Options) (syncer.Stats, error)
}

// FinanceRunner refreshes customer finance data. *customers.FinanceSync satisfies it.
type FinanceRunner interface {
	Run(ctx context.Context) (customers.FinanceStats, error)
}

// Migrator applies pending schema migrations.
type Migrator interface {
	Migrate(ctx context.Context) (int, error)
}

// ErrRunnerRequired is returned when the CLI is built without a sync runner.
var ErrRunnerRequired = errors.New("cli: sync runner required")

// SyncCLI dispatches sapsync subcommands.
type SyncCLI struct {
	sync     SyncRunner
	finance  FinanceRunner
	migrator Migrator
	printer  *message.Printer
}

// New constructs the CLI. finance and migrator may be nil, which disables
// the matching subcommand.
func New(sync SyncRunner, finance FinanceRunner, migrator Migrator) (*SyncCLI, error) {
	if sync == nil {
		return nil, ErrRunnerRequired
	}
	return &SyncCLI{
		sync:     sync,
		finance:  finance,
		migrator: migrator,
		printer:  message.NewPrinter(language.English),
	}, nil
}

// Options carries output destinations.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
}

const usage = `usage:
  sapsync sync <kind|all> [--days-back N] [--date YYYY-MM-DD] [--from-date YYYY-MM-DD --to-date YYYY-MM-DD] [--docnum N] [--mode local|push] [--json]
  sapsync finance [--json]
  sapsync migrate

kinds: salesorders, purchaseorders, quotations, arinvoices, arcreditmemos
`

// Execute runs the subcommand named by args[0] and returns the exit code.
func (c *SyncCLI) Execute(ctx context.Context, args []string, opts Options) int {
	if len(args) == 0 {
		fmt.Fprint(opts.Stderr, usage)
		return ExitUsage
	}
	switch args[0] {
	case "sync":
		return c.syncCommand(ctx, args[1:], opts)
	case "finance":
		return c.financeCommand(ctx, args[1:], opts)
	case "migrate":
		return c.migrateCommand(ctx, opts)
	case "help", "-h", "--help":
		fmt.Fprint(opts.Stdout, usage)
		return ExitOK
	default:
		fmt.Fprintf(opts.Stderr, "unknown command %q\n%s", args[0], usage)
		return ExitUsage
	}
}

// SyncSummary is the --json output of the sync command.
type SyncSummary struct {
	OK   bool           `json:"ok"`
	Runs []syncer.Stats `json:"runs"`
	// Failures maps kind to the fatal error of its run.
	Failures map[string]string `json:"failures,omitempty"`
}

type syncFlags struct {
	daysBack int
	date     string
	fromDate string
	toDate   string
	docNum   string
	mode     string
	json     bool
}

func (c *SyncCLI) syncCommand(ctx context.Context, args []string, opts Options) int {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprint(opts.Stderr, usage)
		return ExitUsage
	}
	target := args[0]

	var f syncFlags
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(opts.Stderr)
	fs.IntVar(&f.daysBack, "days-back", 0, "days of history for windowed fetches")
	fs.StringVar(&f.date, "date", "", "sync documents posted on this day")
	fs.StringVar(&f.fromDate, "from-date", "", "range start (quotations and AR only)")
	fs.StringVar(&f.toDate, "to-date", "", "range end (quotations and AR only)")
	fs.StringVar(&f.docNum, "docnum", "", "sync a single document number")
	fs.StringVar(&f.mode, "mode", "", "local or push, defaults to SYNC_MODE")
	fs.BoolVar(&f.json, "json", false, "print the summary as JSON")
	if err := fs.Parse(args[1:]); err != nil {
		return ExitUsage
	}

	kinds, err := resolveKinds(target)
	if err != nil {
		fmt.Fprintln(opts.Stderr, err)
		return ExitUsage
	}
	runOpts, err := f.options()
	if err != nil {
		fmt.Fprintln(opts.Stderr, err)
		return ExitUsage
	}
	if err := runOpts.Validate(); err != nil {
		fmt.Fprintln(opts.Stderr, err)
		return ExitUsage
	}

	summary := SyncSummary{OK: true}
	for _, kind := range kinds {
		stats, err := c.sync.Run(ctx, kind, runOpts)
		if err != nil {
			summary.OK = false
			if summary.Failures == nil {
				summary.Failures = make(map[string]string)
			}
			summary.Failures[string(kind)] = err.Error()
			if ctx.Err() != nil {
				break
			}
			continue
		}
		summary.Runs = append(summary.Runs, stats)
	}

	if f.json {
		if err := writeJSON(opts.Stdout, summary); err != nil {
			fmt.Fprintln(opts.Stderr, err)
			return ExitFatal
		}
	} else {
		c.printSync(opts, kinds, summary)
	}
	if !summary.OK {
		return ExitFatal
	}
	return ExitOK
}

func (f syncFlags) options() (syncer.Options, error) {
	mode, err := syncer.ParseMode(f.mode, "")
	if err != nil {
		return syncer.Options{}, err
	}
	out := syncer.Options{DaysBack: f.daysBack, DocNum: strings.TrimSpace(f.docNum), Mode: mode}
	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Time
	}{{"date", f.date, &out.Date}, {"from-date", f.fromDate, &out.From}, {"to-date", f.toDate, &out.To}} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse(documents.DateLayout, d.raw)
		if err != nil {
			return syncer.Options{}, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", d.name, d.raw)
		}
		*d.dst = t
	}
	return out, nil
}

func resolveKinds(target string) ([]documents.Kind, error) {
	if strings.EqualFold(target, KindAll) {
		return documents.Kinds(), nil
	}
	kind, err := documents.ParseKind(target)
	if err != nil {
		return nil, err
	}
	return []documents.Kind{kind}, nil
}

func (c *SyncCLI) printSync(opts Options, kinds []documents.Kind, summary SyncSummary) {
	byKind := make(map[string]syncer.Stats, len(summary.Runs))
	for _, s := range summary.Runs {
		byKind[s.Kind] = s
	}
	for _, kind := range kinds {
		label := kind.Label()
		if msg, failed := summary.Failures[string(kind)]; failed {
			fmt.Fprintf(opts.Stderr, "%s: FAILED: %s\n", label, msg)
			continue
		}
		s := byKind[string(kind)]
		c.printer.Fprintf(opts.Stdout,
			"%s (%s, %s): fetched %d, created %d, updated %d, closed %d, items %d, api calls %d, %d ms\n",
			label, s.Mode, s.Scope, s.Fetched, s.Created, s.Updated, s.Closed, s.TotalItems, s.APICalls, s.DurationMS)
		if s.SkippedPages > 0 {
			c.printer.Fprintf(opts.Stdout, "  skipped pages: %d\n", s.SkippedPages)
		}
		if s.UnknownStatus > 0 {
			c.printer.Fprintf(opts.Stdout, "  unknown statuses treated as closed: %d\n", s.UnknownStatus)
		}
		for _, e := range s.Errors {
			fmt.Fprintf(opts.Stdout, "  warning: %s\n", e)
		}
	}
}

func (c *SyncCLI) financeCommand(ctx context.Context, args []string, opts Options) int {
	if c.finance == nil {
		fmt.Fprintln(opts.Stderr, "finance sync not configured")
		return ExitFatal
	}
	var asJSON bool
	fs := flag.NewFlagSet("finance", flag.ContinueOnError)
	fs.SetOutput(opts.Stderr)
	fs.BoolVar(&asJSON, "json", false, "print the summary as JSON")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	stats, err := c.finance.Run(ctx)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "finance sync failed: %v\n", err)
		return ExitFatal
	}
	if asJSON {
		if err := writeJSON(opts.Stdout, stats); err != nil {
			fmt.Fprintln(opts.Stderr, err)
			return ExitFatal
		}
		return ExitOK
	}
	c.printer.Fprintf(opts.Stdout, "customer finance: fetched %d, created %d, updated %d, api calls %d\n",
		stats.Fetched, stats.Created, stats.Updated, stats.APICalls)
	for _, e := range stats.Errors {
		fmt.Fprintf(opts.Stdout, "  warning: %s\n", e)
	}
	return ExitOK
}

func (c *SyncCLI) migrateCommand(ctx context.Context, opts Options) int {
	if c.migrator == nil {
		fmt.Fprintln(opts.Stderr, "migrations not configured")
		return ExitFatal
	}
	n, err := c.migrator.Migrate(ctx)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "migrate failed after %d file(s): %v\n", n, err)
		return ExitFatal
	}
	c.printer.Fprintf(opts.Stdout, "applied %d migration(s)\n", n)
	return ExitOK
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
