package app

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/ukstats/sourcefetch/internal/fetcher"
	"github.com/ukstats/sourcefetch/internal/status"
)

// renderReport prints one row per source followed by the run summary and the
// reasons of failed sources
func renderReport(out io.Writer, report *fetcher.Report) error {
	table := tablewriter.NewWriter(out)
	table.Header("Source", "Type", "Result", "Rows", "Output", "Duration")

	for _, res := range report.Results {
		row := []string{res.Name, res.Type, "", "", res.OutputFile, res.Duration.Round(time.Millisecond).String()}
		switch {
		case !res.Succeeded():
			row[2] = res.Kind()
		case res.Changed:
			row[2] = "updated"
			row[3] = strconv.Itoa(res.Result.RowCount)
		default:
			row[2] = "unchanged"
			row[3] = strconv.Itoa(res.Result.RowCount)
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(out, report.Summary()); err != nil {
		return err
	}

	failed := report.Failed()
	if len(failed) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(out, "Failed sources:"); err != nil {
		return err
	}
	for _, res := range failed {
		if _, err := fmt.Fprintf(out, "  %s: %v\n", res.Name, res.Err); err != nil {
			return err
		}
	}
	return nil
}

// renderStatus prints the persisted status of every source, sorted by name
func renderStatus(out io.Writer, statuses map[string]*status.FetchStatus) error {
	if len(statuses) == 0 {
		_, err := fmt.Fprintln(out, "No fetch status recorded")
		return err
	}

	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(out)
	table.Header("Source", "Phase", "Rows", "Last Attempt", "Last Success", "Attempts", "Message")

	for _, name := range names {
		st := statuses[name]
		row := []string{
			name,
			string(st.Phase),
			strconv.Itoa(st.RowCount),
			formatTime(st.LastAttempt),
			formatTime(st.LastSuccessTime),
			strconv.Itoa(st.AttemptCount),
			st.Message,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
