package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/activity-log/pkg/core/roster"
)

// Roster is the member directory served by the handlers
type Roster interface {
	Summaries() ([]roster.UserSummary, error)
	User(uid string) (*roster.User, error)
	Pending() ([]roster.UserDetail, error)
	Reload(ctx context.Context) error
	Err() error
}

type Handlers struct {
	Roster Roster
	Logger *zap.Logger
}

func New(r Roster, logger *zap.Logger) *Handlers {
	return &Handlers{
		Roster: r,
		Logger: logger,
	}
}
