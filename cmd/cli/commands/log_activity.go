package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/activity-log/pkg/core/roster"
)

// LogActivityCmd creates the logActivity command
func LogActivityCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logActivity <uid> <type>...",
		Short: "Log today's activities for a member (errands, catering, work)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("logActivity command", zap.String("uid", args[0]), zap.Strings("types", args[1:]))

			created, err := logActivity(app.Ctx, app.Roster, args[0], args[1:])
			if err != nil {
				return err
			}

			for _, e := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged %s on %s as entry %s\n", e.Activity(), e.Date(), e.ID())
			}
			return nil
		},
	}
}

func logActivity(ctx context.Context, r *roster.Roster, uid string, requested []string) ([]*roster.Entry, error) {
	types := roster.FilterActivityTypes(requested)
	if len(types) == 0 {
		return nil, fmt.Errorf("no valid activity type in %s", strings.Join(requested, ", "))
	}

	u, err := r.User(uid)
	if err != nil {
		return nil, err
	}

	return u.CreateEntries(ctx, types)
}
