package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jakechorley/activity-log/pkg/core/roster"
)

// ListMembersCmd creates the listMembers command
func ListMembersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listMembers",
		Short: "List active members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := app.Roster.Summaries()
			if err != nil {
				return err
			}
			printMembers(cmd.OutOrStdout(), summaries)
			return nil
		},
	}
}

func printMembers(w io.Writer, summaries []roster.UserSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No active members")
		return
	}

	fmt.Fprintf(w, "%-12s %-30s %s\n", "UID", "Name", "Signed up")
	for _, s := range summaries {
		signUp := roster.Date{Day: s.SignUpDate.Day, Month: s.SignUpDate.Month, Year: s.SignUpDate.Year}
		fmt.Fprintf(w, "%-12s %-30s %s\n", s.UID, s.FirstName+" "+s.LastName, signUp)
	}
	fmt.Fprintf(w, "\n%d active members\n", len(summaries))
}
