package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/activity-log/pkg/core/roster"
)

// ReviewEntryCmd creates the reviewEntry command
func ReviewEntryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reviewEntry <uid> <entry_id> accept|reject",
		Short: "Accept or reject a logged entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("reviewEntry command",
				zap.String("uid", args[0]),
				zap.String("entry_id", args[1]),
				zap.String("decision", args[2]))

			e, err := reviewEntry(app.Ctx, app.Roster, args[0], args[1], args[2])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Entry %s (%s on %s) is now %s\n", e.ID(), e.Activity(), e.Date(), e.Status())
			return nil
		},
	}
}

func reviewEntry(ctx context.Context, r *roster.Roster, uid, rawID, decision string) (*roster.Entry, error) {
	if decision != "accept" && decision != "reject" {
		return nil, fmt.Errorf("decision must be accept or reject, got: %s", decision)
	}

	id, err := roster.ParseEntryID(rawID)
	if err != nil {
		return nil, err
	}

	u, err := r.User(uid)
	if err != nil {
		return nil, err
	}

	e, err := u.Entry(id)
	if err != nil {
		return nil, err
	}

	if decision == "accept" {
		err = e.Accept(ctx)
	} else {
		err = e.Reject(ctx)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
