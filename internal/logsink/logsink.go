// Package logsink persists warning-and-above log events to the logs table so
// the admin UI can surface them without shell access.
package logsink

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/models"
	"github.com/fluxarr/fluxarr/internal/repository"
)

// Hook is a zerolog hook writing qualifying events through the log
// repository. Writes use a short detached context so a wedged database
// cannot stall logging callers indefinitely.
type Hook struct {
	repo repository.LogRepository
}

func NewHook(repo repository.LogRepository) *Hook {
	return &Hook{repo: repo}
}

func (h *Hook) Run(e *zerolog.Event, level zerolog.Level, message string) {
	if level < zerolog.WarnLevel || message == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Hook has no access to the event's accumulated fields; component is
	// carried in the message context by convention.
	_ = h.repo.Insert(ctx, models.LogEntry{
		Level:   level.String(),
		Message: message,
	})
}
