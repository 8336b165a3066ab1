// Package travel supplies travel-metrics snapshots from the durable store or
// from an external travel model.
package travel

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/transportresilience/rdr/internal/types"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a key
var ErrSnapshotNotFound = errors.New("travel snapshot not found")

// NotFound wraps ErrSnapshotNotFound with the missing key
func NotFound(key types.SnapshotKey, yt types.YearType) error {
	return fmt.Errorf("%w: %s (%s)", ErrSnapshotNotFound, key, yt)
}

// Provider returns the travel metrics of one scenario stage
type Provider interface {
	Snapshot(ctx context.Context, key types.SnapshotKey, yt types.YearType) (types.Snapshot, error)
}

// Store persists snapshots. GetSnapshot returns ErrSnapshotNotFound for
// unknown keys.
type Store interface {
	GetSnapshot(ctx context.Context, key types.SnapshotKey, yt types.YearType) (types.Snapshot, error)
	PutSnapshot(ctx context.Context, snap types.Snapshot) error
}

// StoreProvider serves snapshots that were imported into the store ahead of
// the run.
type StoreProvider struct {
	Store Store
}

// Snapshot looks the key up in the store
func (p *StoreProvider) Snapshot(ctx context.Context, key types.SnapshotKey, yt types.YearType) (types.Snapshot, error) {
	return p.Store.GetSnapshot(ctx, key, yt)
}

// MemoizingProvider checks the store first and falls back to another
// provider on a miss, persisting what it computes. Concurrent misses on the
// same key share one computation.
type MemoizingProvider struct {
	store    Store
	fallback Provider
	logger   *zap.SugaredLogger
	group    singleflight.Group
}

// NewMemoizingProvider wraps fallback with store-backed memoization
func NewMemoizingProvider(store Store, fallback Provider, logger *zap.SugaredLogger) *MemoizingProvider {
	return &MemoizingProvider{store: store, fallback: fallback, logger: logger}
}

// Snapshot returns the stored snapshot or computes and stores it
func (p *MemoizingProvider) Snapshot(ctx context.Context, key types.SnapshotKey, yt types.YearType) (types.Snapshot, error) {
	snap, err := p.store.GetSnapshot(ctx, key, yt)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, ErrSnapshotNotFound) {
		return types.Snapshot{}, err
	}

	v, err, shared := p.group.Do(key.String()+"|"+string(yt), func() (interface{}, error) {
		// a previous flight may have stored it since the first lookup
		if snap, err := p.store.GetSnapshot(ctx, key, yt); err == nil {
			return snap, nil
		}
		p.logger.Debugf("computing travel snapshot %s (%s)", key, yt)
		snap, err := p.fallback.Snapshot(ctx, key, yt)
		if err != nil {
			return types.Snapshot{}, err
		}
		if err := p.store.PutSnapshot(ctx, snap); err != nil {
			return types.Snapshot{}, fmt.Errorf("storing travel snapshot %s: %w", key, err)
		}
		return snap, nil
	})
	if err != nil {
		return types.Snapshot{}, err
	}
	if shared {
		p.logger.Debugf("travel snapshot %s (%s) shared with a concurrent request", key, yt)
	}
	return v.(types.Snapshot), nil
}
