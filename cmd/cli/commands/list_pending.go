package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jakechorley/activity-log/pkg/core/roster"
)

// ListPendingCmd creates the listPending command
func ListPendingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listPending",
		Short: "List entries awaiting review, grouped by member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pending, err := app.Roster.Pending()
			if err != nil {
				return err
			}
			printPending(cmd.OutOrStdout(), pending)
			return nil
		},
	}
}

func printPending(w io.Writer, pending []roster.UserDetail) {
	if len(pending) == 0 {
		fmt.Fprintln(w, "Nothing to review")
		return
	}

	total := 0
	for _, u := range pending {
		fmt.Fprintf(w, "%s %s (%s)\n", u.FirstName, u.LastName, u.UID)
		for _, e := range u.DataEntries {
			date := roster.Date{Day: e.EntryDate.Date, Month: e.EntryDate.Month, Year: e.EntryDate.Year}
			fmt.Fprintf(w, "  #%-5d %s  %s\n", e.ID, date, e.Type)
			total++
		}
	}
	fmt.Fprintf(w, "\n%d pending entries\n", total)
}
