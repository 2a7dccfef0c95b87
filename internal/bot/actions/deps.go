package actions

import (
	"context"
	"log/slog"

	"github.com/edgard/socialbot/internal/config"
	"github.com/edgard/socialbot/internal/memory"
)

// LongTermMemory is the part of the memory store actions use.
type LongTermMemory interface {
	StoreLongTerm(ctx context.Context, userID string, record memory.LongTermRecord)
	GetLongTerm(ctx context.Context, userID string) []memory.LongTermRecord
}

// Deps provides dependencies for actions. It is handed to every action once at startup.
type Deps struct {
	Logger *slog.Logger
	Config *config.Config
	Memory LongTermMemory
}
