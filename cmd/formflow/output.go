package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/alfredjeanlab/formflow/internal/model"
	"github.com/alfredjeanlab/formflow/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printFormTable(w io.Writer, f *model.Form) {
	fmt.Fprintf(w, "ID:          %s\n", f.ID)
	fmt.Fprintf(w, "Title:       %s\n", f.Title)
	fmt.Fprintf(w, "State:       %s\n", ui.RenderState(f.State))
	fmt.Fprintf(w, "Group:       %s\n", f.GroupID)
	fmt.Fprintf(w, "Owner:       %s\n", f.OwnerID)
	if !f.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At:  %s\n", f.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if !f.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated At:  %s\n", f.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printFormListTable(w io.Writer, forms []*model.Form) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tGROUP\tOWNER\tTITLE")
	for _, f := range forms {
		title := f.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.State, f.GroupID, f.OwnerID, title)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d forms\n", len(forms))
}

// printEventLine renders one event on a single line for watch and tail.
func printEventLine(w io.Writer, ev model.Event) {
	fmt.Fprintf(w, "%s %s %s %s\n",
		ui.RenderMuted(ev.Timestamp.Format("15:04:05")),
		ui.RenderEventType(ev.Type),
		ev.EntityID,
		ui.RenderMuted(ev.ResourceGroup.String()),
	)
}
