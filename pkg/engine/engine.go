// Package engine runs aggregate mutations on members: the root row, its goal
// links and its owned sessions change together in one transaction or not at all.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ha1tch/meditactive/pkg/catalog"
	"github.com/ha1tch/meditactive/pkg/member"
	"github.com/ha1tch/meditactive/pkg/models"
	"github.com/ha1tch/meditactive/pkg/storage"
)

// Recorder receives mutation outcomes. pkg/metrics provides the Prometheus one.
type Recorder interface {
	ObserveMutation(op, outcome string, elapsed time.Duration)
	SkippedReferences(kind string, n int)
}

// Outcome labels
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

type nopRecorder struct{}

func (nopRecorder) ObserveMutation(string, string, time.Duration) {}
func (nopRecorder) SkippedReferences(string, int)                 {}

// Engine coordinates create, update and delete of member aggregates
type Engine struct {
	db       *storage.DB
	resolver *catalog.Resolver
	members  *member.Repository
	goals    *GoalSynchronizer
	sessions *SessionMaterializer
	reaper   OrphanReaper
	logger   zerolog.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock overrides the clock used for sessions without a start date
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over db
func New(db *storage.DB, resolver *catalog.Resolver, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		resolver: resolver,
		members:  member.NewRepository(),
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.goals = NewGoalSynchronizer(resolver, e.logger)
	e.sessions = NewSessionMaterializer(resolver, e.logger, e.now)
	return e
}

// CreateMember inserts a member with its goal links and sessions
func (e *Engine) CreateMember(ctx context.Context, cmd models.CreateMemberCommand) (*models.MutationResult, error) {
	var result *models.MutationResult

	err := e.run(ctx, "create", func(tx *storage.Tx) error {
		m, err := e.members.Create(ctx, tx, cmd.MemberFields)
		if err != nil {
			return err
		}

		var warnings []models.Warning
		if len(cmd.Goals) > 0 {
			w, err := e.goals.ReplaceGoals(ctx, tx, m.ID, cmd.Goals)
			if err != nil {
				return err
			}
			warnings = append(warnings, w...)
		}
		if len(cmd.Sessions) > 0 {
			_, w, err := e.sessions.MaterializeSessions(ctx, tx, m.ID, cmd.Sessions)
			if err != nil {
				return err
			}
			warnings = append(warnings, w...)
		}

		agg, err := loadAggregate(ctx, tx, e.members, m.ID)
		if err != nil {
			return err
		}
		result = &models.MutationResult{Member: agg, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordWarnings(result.Warnings)
	return result, nil
}

// UpdateMember applies a sparse update. Goals and sessions are reconciled only
// when present in cmd; sessions are always cleared and rematerialized.
func (e *Engine) UpdateMember(ctx context.Context, id int64, cmd models.UpdateMemberCommand) (*models.MutationResult, error) {
	var result *models.MutationResult

	err := e.run(ctx, "update", func(tx *storage.Tx) error {
		exists, err := e.members.Exists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return storage.ErrNotFound
		}

		if !cmd.MemberPatch.IsEmpty() {
			if _, err := e.members.UpdatePartial(ctx, tx, id, cmd.MemberPatch); err != nil {
				return err
			}
		}

		var warnings []models.Warning
		if cmd.Goals.Set {
			w, err := e.goals.ReplaceGoals(ctx, tx, id, cmd.Goals.Value)
			if err != nil {
				return err
			}
			warnings = append(warnings, w...)
		}

		if cmd.Sessions.Set {
			reaped, err := e.reaper.ClearSessionLinks(ctx, tx, id)
			if err != nil {
				return err
			}
			e.logger.Debug().Int64("member_id", id).Int("reaped", reaped).Msg("Cleared session links")

			_, w, err := e.sessions.MaterializeSessions(ctx, tx, id, cmd.Sessions.Value)
			if err != nil {
				return err
			}
			warnings = append(warnings, w...)
		}

		agg, err := loadAggregate(ctx, tx, e.members, id)
		if err != nil {
			return err
		}
		result = &models.MutationResult{Member: agg, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.recordWarnings(result.Warnings)
	return result, nil
}

// DeleteMember removes a member after its links and orphaned sessions
func (e *Engine) DeleteMember(ctx context.Context, id int64) error {
	return e.run(ctx, "delete", func(tx *storage.Tx) error {
		exists, err := e.members.Exists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return storage.ErrNotFound
		}

		if err := e.reaper.ClearGoalLinks(ctx, tx, id); err != nil {
			return err
		}
		reaped, err := e.reaper.ClearSessionLinks(ctx, tx, id)
		if err != nil {
			return err
		}
		e.logger.Debug().Int64("member_id", id).Int("reaped", reaped).Msg("Cleared session links")

		return e.members.Delete(ctx, tx, id)
	})
}

// GetMember reads a member aggregate outside any mutation
func (e *Engine) GetMember(ctx context.Context, id int64) (*models.MemberAggregate, error) {
	return loadAggregate(ctx, e.db, e.members, id)
}

// ListMembers returns one page of member rows ordered by id. Relations are
// not loaded; callers wanting them fetch each aggregate with GetMember.
func (e *Engine) ListMembers(ctx context.Context, limit, offset int) ([]models.Member, error) {
	return e.members.List(ctx, e.db, limit, offset)
}

// CountMembers returns the total number of members
func (e *Engine) CountMembers(ctx context.Context) (int, error) {
	return e.members.Count(ctx, e.db)
}

// ListGoals returns the goal catalog
func (e *Engine) ListGoals(ctx context.Context) ([]models.Goal, error) {
	return e.resolver.ListGoals(ctx, e.db)
}

// ListSessionTypes returns the session type catalog
func (e *Engine) ListSessionTypes(ctx context.Context) ([]models.SessionType, error) {
	return e.resolver.ListSessionTypes(ctx, e.db)
}

// run wraps fn in a transaction and classifies the outcome. Domain errors
// pass through unchanged; anything else becomes a *TransactionError.
func (e *Engine) run(ctx context.Context, op string, fn func(*storage.Tx) error) error {
	start := time.Now()
	err := storage.RunInTransaction(ctx, e.db, fn)
	outcome := classify(err)
	e.recorder.ObserveMutation(op, outcome, time.Since(start))

	switch outcome {
	case OutcomeOK:
		e.logger.Info().Str("op", op).Dur("elapsed", time.Since(start)).Msg("Committed member mutation")
		return nil
	case OutcomeError:
		e.logger.Error().Err(err).Str("op", op).Msg("Rolled back member mutation")
		return &TransactionError{Op: op, Err: err}
	default:
		e.logger.Debug().Err(err).Str("op", op).Str("outcome", outcome).Msg("Rolled back member mutation")
		return err
	}
}

func classify(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, storage.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, storage.ErrDuplicateIdentity):
		return OutcomeDuplicate
	case errors.Is(err, member.ErrRequiredField), errors.Is(err, ErrInvalidRange):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

func (e *Engine) recordWarnings(warnings []models.Warning) {
	counts := make(map[string]int)
	for _, w := range warnings {
		counts[w.Kind]++
	}
	for kind, n := range counts {
		e.recorder.SkippedReferences(kind, n)
	}
}

func loadAggregate(ctx context.Context, h storage.Handle, members *member.Repository, id int64) (*models.MemberAggregate, error) {
	m, err := members.Get(ctx, h, id)
	if err != nil {
		return nil, err
	}
	goals, err := ListGoals(ctx, h, id)
	if err != nil {
		return nil, err
	}
	sessions, err := ListSessions(ctx, h, id)
	if err != nil {
		return nil, err
	}
	return &models.MemberAggregate{Member: *m, Goals: goals, Sessions: sessions}, nil
}
