package cli

import (
	"fmt"
	"io"
	"manifest_fetcher/internal/utils"
	"manifest_fetcher/pkg/mfetch"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	historyHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	historyCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	historyOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Padding(0, 1)
	historyErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Padding(0, 1)
	historyMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent runs, or the per-file results of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := mfetch.NewClient(&mfetch.ClientOptions{Verbose: verbose})
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer func() {
			if err := client.Shutdown(); err != nil {
				utils.Debug("Shutdown error: %v", err)
			}
		}()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			run, rows, err := client.RunResults(args[0])
			if err != nil {
				return err
			}
			renderRun(out, run, rows)
			return nil
		}

		runs, err := client.History(limit)
		if err != nil {
			return err
		}
		renderRuns(out, runs)
		return nil
	},
}

func renderRuns(w io.Writer, runs []mfetch.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, historyMutedStyle.Render("No runs recorded yet."))
		return
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d/%d", r.Saved, r.Total),
			runStatus(r),
			r.Manifest,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "SAVED", "STATUS", "MANIFEST").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return historyHeaderStyle
			}
			if col == 3 && row < len(runs) {
				if runs[row].Interrupted || runs[row].Saved < runs[row].Total {
					return historyErrStyle
				}
				return historyOKStyle
			}
			return historyCellStyle
		})
	fmt.Fprintln(w, t.String())
}

func renderRun(w io.Writer, run mfetch.Run, results []mfetch.ResultRow) {
	fmt.Fprintf(w, "Run %s  %s  saved %d/%d  -> %s\n",
		run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), run.Saved, run.Total, run.OutputRoot)

	if len(results) == 0 {
		fmt.Fprintln(w, historyMutedStyle.Render("No results recorded for this run."))
		return
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "-"
		if r.StatusCode != 0 {
			status = strconv.Itoa(r.StatusCode)
		}
		detail := r.Error
		if detail == "" {
			detail = r.Kind
		}
		rows = append(rows, []string{
			r.Name,
			r.Outcome,
			status,
			strconv.FormatInt(r.Bytes, 10),
			r.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "OUTCOME", "STATUS", "BYTES", "TIME", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return historyHeaderStyle
			}
			if col == 1 && row < len(results) {
				if results[row].Outcome == mfetch.OutcomeSaved.String() {
					return historyOKStyle
				}
				return historyErrStyle
			}
			return historyCellStyle
		})
	fmt.Fprintln(w, t.String())
}

func runStatus(r mfetch.Run) string {
	switch {
	case r.FinishedAt.IsZero():
		return "incomplete"
	case r.Interrupted:
		return "interrupted"
	case r.Saved == r.Total:
		return "ok"
	default:
		return "partial"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show (0 shows all)")
	rootCmd.AddCommand(historyCmd)
}
