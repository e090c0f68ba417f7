package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"mixdeck.dev/internal/config"
	"mixdeck.dev/internal/tracking"
)

// ErrNoJournal is returned when stats are requested but nothing was recorded
var ErrNoJournal = errors.New("no playback journal")

type statsOptions struct {
	since   string
	preset  string
	days    int
	kind    string
	name    string
	session string
	limit   int
	missing bool
	recent  bool
	json    bool
}

func newStatsCommand() *cobra.Command {
	var opts statsOptions

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the playback journal",
		Long: `Summarize recorded play requests.

Tracking must be enabled (mixdeck config set tracking.enabled true).

Examples:
  mixdeck stats --preset today
  mixdeck stats --since "2 hours ago" --kind sound
  mixdeck stats --missing
  mixdeck stats --recent --limit 10 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.since, "since", "", `Only requests after this time ("yesterday", "3 hours ago")`)
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Time range: today, yesterday, week, last-week, month, last-month, all")
	cmd.Flags().IntVar(&opts.days, "days", 0, "Only the last N days")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "Only sound or music requests")
	cmd.Flags().StringVar(&opts.name, "name", "", "Only requests for this name")
	cmd.Flags().StringVar(&opts.session, "session", "", "Only this session id")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum rows (0 = no limit)")
	cmd.Flags().BoolVar(&opts.missing, "missing", false, "List names that were not found")
	cmd.Flags().BoolVar(&opts.recent, "recent", false, "List the newest requests")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print JSON")

	return cmd
}

func (o statsOptions) filter(cli *CLI) (tracking.QueryFilter, error) {
	filter := tracking.QueryFilter{
		Days:       o.days,
		DatePreset: o.preset,
		Kind:       o.kind,
		Name:       o.name,
		SessionID:  o.session,
		Limit:      o.limit,
	}

	if o.preset != "" {
		if _, _, err := tracking.ParseDatePreset(o.preset, cli.now()); err != nil {
			return filter, err
		}
	}

	if o.since != "" {
		start, err := tracking.ParseNaturalDate(o.since, cli.now())
		if err != nil {
			return filter, err
		}
		filter.StartTime = &start
	}

	if o.kind != "" && o.kind != "sound" && o.kind != "music" {
		return filter, fmt.Errorf("invalid kind %q, must be sound or music", o.kind)
	}
	return filter, nil
}

func runStats(cmd *cobra.Command, opts statsOptions) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}

	cfg, err := cli.loadAndValidateConfig(cmd)
	if err != nil {
		return err
	}

	filter, err := opts.filter(cli)
	if err != nil {
		return err
	}

	trackingCfg := cfg.Tracking
	if trackingCfg == nil {
		trackingCfg = config.GetDefaultTrackingConfig()
	}
	dbPath := trackingCfg.ResolveDatabasePath(cli.configManager.XDG())
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("%w at %s (enable it with: mixdeck config set tracking.enabled true)", ErrNoJournal, dbPath)
	}

	db, err := tracking.NewDatabase(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case opts.missing:
		return printMissing(cmd, db, filter, cli, opts.json)
	case opts.recent:
		return printRecent(cmd, db, filter, cli, opts.json)
	default:
		return printSummary(cmd, db, filter, cli, opts.json)
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers(headers...)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(cmd *cobra.Command, db *sql.DB, filter tracking.QueryFilter, cli *CLI, asJSON bool) error {
	summary, err := tracking.Stats(db, filter, cli.now())
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd, summary)
	}

	cmd.Printf("%d requests in %d sessions\n", summary.Total, summary.Sessions)

	outcomes := make([]string, 0, len(summary.ByOutcome))
	for outcome := range summary.ByOutcome {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		cmd.Printf("  %-14s %d\n", outcome, summary.ByOutcome[outcome])
	}

	if len(summary.Names) == 0 {
		return nil
	}

	t := newTable("KIND", "NAME", "REQUESTS", "PLAYED", "FAILED", "LAST PLAYED")
	for _, usage := range summary.Names {
		last := "-"
		if !usage.LastPlayed.IsZero() {
			last = usage.LastPlayed.Local().Format("2006-01-02 15:04")
		}
		t.Row(usage.Kind, usage.Name,
			strconv.Itoa(usage.Requests),
			strconv.Itoa(usage.Played),
			strconv.Itoa(usage.Failed),
			last)
	}
	cmd.Println(t.String())
	return nil
}

func printMissing(cmd *cobra.Command, db *sql.DB, filter tracking.QueryFilter, cli *CLI, asJSON bool) error {
	missing, err := tracking.MissingSounds(db, filter, cli.now())
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd, missing)
	}
	if len(missing) == 0 {
		cmd.Println("no missing sounds")
		return nil
	}

	t := newTable("KIND", "NAME", "REQUESTS")
	for _, m := range missing {
		t.Row(m.Kind, m.Name, strconv.Itoa(m.RequestCount))
	}
	cmd.Println(t.String())
	return nil
}

func printRecent(cmd *cobra.Command, db *sql.DB, filter tracking.QueryFilter, cli *CLI, asJSON bool) error {
	rows, err := tracking.Recent(db, filter, cli.now())
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd, rows)
	}

	t := newTable("TIME", "KIND", "NAME", "OUTCOME", "VOLUME")
	for _, r := range rows {
		t.Row(r.Time.Local().Format("2006-01-02 15:04:05"), r.Kind, r.Name, r.Outcome,
			strconv.FormatFloat(r.Volume, 'f', 2, 64))
	}
	cmd.Println(t.String())
	return nil
}
