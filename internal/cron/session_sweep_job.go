package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/asala-storefront/pkg/logger"
)

const defaultSessionIdleTTL = 2 * time.Hour

type SessionSweepJobParams struct {
	Logger   *logger.Logger
	Sessions sessionSweeper
	IdleTTL  time.Duration
}

type sessionSweeper interface {
	Sweep(idle time.Duration) int
	Len() int
}

// NewSessionSweepJob evicts visitor sessions idle for longer than IdleTTL.
func NewSessionSweepJob(params SessionSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session registry required")
	}
	ttl := params.IdleTTL
	if ttl <= 0 {
		ttl = defaultSessionIdleTTL
	}
	return &sessionSweepJob{
		logg:     params.Logger,
		sessions: params.Sessions,
		idleTTL:  ttl,
	}, nil
}

type sessionSweepJob struct {
	logg     *logger.Logger
	sessions sessionSweeper
	idleTTL  time.Duration
}

func (j *sessionSweepJob) Name() string { return "session-sweep" }

func (j *sessionSweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("session sweep: %w", err)
	}
	evicted := j.sessions.Sweep(j.idleTTL)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"idle_ttl":          j.idleTTL.String(),
		"sessions_evicted":  evicted,
		"sessions_retained": j.sessions.Len(),
	})
	j.logg.Info(logCtx, "session sweep complete")
	return nil
}
