package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/adalundhe/pollwatch/core/sink"
	"github.com/adalundhe/pollwatch/core/watcher"
	"github.com/spf13/cobra"
)

// HistoryDefaultLimit is the default number of records shown.
const HistoryDefaultLimit = 20

var errUnknownChange = errors.New("unknown change type")

// =============================================================================
// History Command Flags
// =============================================================================

var (
	historyLimit   int
	historyChange  string
	historyJSON    bool
	historyLogFile string
	historySQLite  string
)

// =============================================================================
// History Command
// =============================================================================

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded changes",
	Long: `Show recorded changes, newest first.

Records are read from the JSON-lines change log, or from a SQLite database
when --sqlite is given.

Examples:
  pollwatch history                        # Last 20 changes
  pollwatch history --change deleted       # Only deletions
  pollwatch history --limit 0 --json       # Everything, as JSON`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", HistoryDefaultLimit, "Maximum records to show (0 for all)")
	historyCmd.Flags().StringVarP(&historyChange, "change", "c", "", "Only show one change type: created, modified, deleted")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyCmd.Flags().StringVar(&historyLogFile, "log-file", "", "JSON-lines change log path (default from config)")
	historyCmd.Flags().StringVar(&historySQLite, "sqlite", "", "Read from this SQLite database instead (bare flag: state directory)")
	historyCmd.Flags().Lookup("sqlite").NoOptDefVal = defaultSQLiteValue
}

func runHistory(cmd *cobra.Command, args []string) error {
	filter, err := parseChangeFilter(historyChange)
	if err != nil {
		return err
	}

	mgr, err := loadConfig()
	if err != nil {
		return err
	}
	defer mgr.Close()

	logFile := historyLogFile
	if logFile == "" {
		logFile = mgr.Get().Sink.LogFile
	}

	sqlitePath, err := resolveSQLitePath(historySQLite)
	if err != nil {
		return err
	}

	records, err := loadHistory(context.Background(), logFile, sqlitePath)
	if err != nil {
		return err
	}
	records = filterRecords(records, filter, historyLimit)

	if historyJSON {
		return writeHistoryJSON(cmd.OutOrStdout(), records)
	}
	writeHistoryTable(cmd.OutOrStdout(), records)
	return nil
}

// parseChangeFilter accepts a change type in any case. Empty means no filter.
func parseChangeFilter(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	op, ok := watcher.ParseFileOperation(strings.ToUpper(s))
	if !ok {
		return "", fmt.Errorf("%w: %q", errUnknownChange, s)
	}
	return op.String(), nil
}

// loadHistory returns records newest first.
func loadHistory(ctx context.Context, logFile, sqlitePath string) ([]sink.Record, error) {
	if sqlitePath != "" {
		db, err := sink.OpenSQLiteReader(sqlitePath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.Recent(ctx, 0)
	}

	records, err := sink.ReadJSONL(logFile)
	if err != nil {
		return nil, fmt.Errorf("read change log: %w", err)
	}
	slices.Reverse(records)
	return records, nil
}

func filterRecords(records []sink.Record, change string, limit int) []sink.Record {
	out := make([]sink.Record, 0, len(records))
	for _, rec := range records {
		if change != "" && rec.Change != change {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func writeHistoryJSON(w io.Writer, records []sink.Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

func writeHistoryTable(w io.Writer, records []sink.Record) {
	if len(records) == 0 {
		fmt.Fprintf(w, "%sNo changes recorded.%s\n", colorYellow, colorReset)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tCHANGE\tFILE")
	fmt.Fprintln(tw, "---------\t------\t----")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.Timestamp, rec.Change, rec.File)
	}
	tw.Flush()
}
