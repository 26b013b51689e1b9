// Package history persists live session runs and their finalized turns.
//
// Records are msgpack-encoded in a kv.Store:
//
//	runs/<run-id>                 Run
//	turns/<run-id>/<index:%06d>   live.Turn
//
// Run IDs are time-ordered, so listing runs in reverse yields the newest
// first.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/livestudio/pkg/kv"
	"github.com/haivivi/livestudio/pkg/live"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("history: run not found")

// Run describes one Start..Stop cycle of a live session.
type Run struct {
	ID        string    `msgpack:"id" json:"id"`
	Model     string    `msgpack:"model" json:"model"`
	Voice     string    `msgpack:"voice,omitempty" json:"voice,omitempty"`
	StartedAt time.Time `msgpack:"started_at" json:"started_at"`
	EndedAt   time.Time `msgpack:"ended_at,omitempty" json:"ended_at,omitzero"`
	Turns     int       `msgpack:"turns" json:"turns"`
	Error     string    `msgpack:"error,omitempty" json:"error,omitempty"`
}

// Store reads and writes history records.
type Store struct {
	kv kv.Store
}

// New returns a Store over s. The caller owns s.
func New(s kv.Store) *Store {
	return &Store{kv: s}
}

func runKey(id string) kv.Key {
	return kv.Key{"runs", id}
}

func turnKey(runID string, index int) kv.Key {
	return kv.Key{"turns", runID, fmt.Sprintf("%06d", index)}
}

// BeginRun records a new run.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("history: run id is required")
	}
	return s.putRun(ctx, run)
}

// AppendTurn stores a turn and bumps the turn count of its run.
func (s *Store) AppendTurn(ctx context.Context, turn live.Turn) error {
	run, err := s.Run(ctx, turn.RunID)
	if err != nil {
		return err
	}
	run.Turns++
	runData, err := msgpack.Marshal(run)
	if err != nil {
		return fmt.Errorf("history: encode run: %w", err)
	}
	turnData, err := msgpack.Marshal(turn)
	if err != nil {
		return fmt.Errorf("history: encode turn: %w", err)
	}
	err = s.kv.Write(ctx, []kv.Op{
		{Key: turnKey(turn.RunID, turn.Index), Value: turnData},
		{Key: runKey(run.ID), Value: runData},
	})
	if err != nil {
		return fmt.Errorf("history: append turn: %w", err)
	}
	return nil
}

// EndRun marks a run finished. A non-nil cause is recorded as its error.
func (s *Store) EndRun(ctx context.Context, id string, at time.Time, cause error) error {
	run, err := s.Run(ctx, id)
	if err != nil {
		return err
	}
	run.EndedAt = at
	if cause != nil {
		run.Error = cause.Error()
	}
	return s.putRun(ctx, run)
}

// Run returns one run.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	data, err := s.kv.Get(ctx, runKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("history: get run: %w", err)
	}
	var run Run
	if err := msgpack.Unmarshal(data, &run); err != nil {
		return Run{}, fmt.Errorf("history: decode run %s: %w", id, err)
	}
	return run, nil
}

// Runs returns up to limit runs, newest first. Zero means no limit.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	for e, err := range s.kv.List(ctx, kv.Key{"runs"}, kv.ListOptions{Reverse: true, Limit: limit}) {
		if err != nil {
			return nil, fmt.Errorf("history: list runs: %w", err)
		}
		var run Run
		if err := msgpack.Unmarshal(e.Value, &run); err != nil {
			continue // skip malformed records
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Turns returns the turns of a run in order.
func (s *Store) Turns(ctx context.Context, runID string) ([]live.Turn, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}
	var turns []live.Turn
	for e, err := range s.kv.List(ctx, kv.Key{"turns", runID}, kv.ListOptions{}) {
		if err != nil {
			return nil, fmt.Errorf("history: list turns: %w", err)
		}
		var turn live.Turn
		if err := msgpack.Unmarshal(e.Value, &turn); err != nil {
			return nil, fmt.Errorf("history: decode turn %s: %w", e.Key, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// DeleteRun removes a run and its turns.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	ops := []kv.Op{{Key: runKey(id)}}
	for e, err := range s.kv.List(ctx, kv.Key{"turns", id}, kv.ListOptions{}) {
		if err != nil {
			return fmt.Errorf("history: list turns: %w", err)
		}
		ops = append(ops, kv.Op{Key: e.Key})
	}
	return s.kv.Write(ctx, ops)
}

func (s *Store) putRun(ctx context.Context, run Run) error {
	data, err := msgpack.Marshal(run)
	if err != nil {
		return fmt.Errorf("history: encode run: %w", err)
	}
	if err := s.kv.Set(ctx, runKey(run.ID), data); err != nil {
		return fmt.Errorf("history: put run: %w", err)
	}
	return nil
}
