package dispatch

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderResults writes a summary table of a run.
func RenderResults(w io.Writer, results []Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Target", "Variable", "Status", "Session", "Duration", "Error"})

	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "failed (" + Classify(r.Err) + ")"
		}
		sessionStatus := ""
		if r.PersistErr != nil {
			sessionStatus = "not saved"
		}
		errText := ""
		switch {
		case r.Err != nil:
			errText = r.Err.Error()
		case r.PersistErr != nil:
			errText = r.PersistErr.Error()
		}
		t.AppendRow(table.Row{
			r.Target,
			r.Variable,
			status,
			sessionStatus,
			r.Duration.Round(time.Millisecond).String(),
			errText,
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
