package commands

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/activity-log/internal/config"
	"github.com/jakechorley/activity-log/pkg/core/roster"
	"github.com/jakechorley/activity-log/pkg/db"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg    *config.Config
	Store  db.Store
	Roster *roster.Roster
	Logger *zap.Logger
	Ctx    context.Context
}
