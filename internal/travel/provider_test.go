package travel

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/transportresilience/rdr/internal/types"
)

type memStore struct {
	mu    sync.Mutex
	snaps map[string]types.Snapshot
	puts  int
}

func newMemStore() *memStore {
	return &memStore{snaps: make(map[string]types.Snapshot)}
}

func (s *memStore) GetSnapshot(_ context.Context, key types.SnapshotKey, yt types.YearType) (types.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[key.String()+string(yt)]
	if !ok {
		return types.Snapshot{}, NotFound(key, yt)
	}
	return snap, nil
}

func (s *memStore) PutSnapshot(_ context.Context, snap types.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.Key.String()+string(snap.YearType)] = snap
	s.puts++
	return nil
}

type countingProvider struct {
	calls atomic.Int32
	delay time.Duration
}

func (p *countingProvider) Snapshot(_ context.Context, key types.SnapshotKey, yt types.YearType) (types.Snapshot, error) {
	p.calls.Add(1)
	time.Sleep(p.delay)
	return types.Snapshot{Key: key, YearType: yt, Modes: map[types.Mode]types.ModeMetrics{types.ModeCar: {Trips: 1}}}, nil
}

var testKey = types.SnapshotKey{Economic: "high", ProjectGroup: "G1", Project: "no", Elasticity: -0.5, HazardEvent: "flood", RecoveryStage: 3}

func TestStoreProviderMissing(t *testing.T) {
	p := &StoreProvider{Store: newMemStore()}
	_, err := p.Snapshot(context.Background(), testKey, types.YearBase)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	assert.Contains(t, err.Error(), testKey.String())
}

func TestMemoizingProviderComputesOnce(t *testing.T) {
	store := newMemStore()
	fallback := &countingProvider{delay: 20 * time.Millisecond}
	p := NewMemoizingProvider(store, fallback, zap.NewNop().Sugar())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := p.Snapshot(context.Background(), testKey, types.YearBase)
			assert.NoError(t, err)
			assert.Equal(t, 1.0, snap.Modes[types.ModeCar].Trips)
		}()
	}
	wg.Wait()

	// a later request is served from the store
	_, err := p.Snapshot(context.Background(), testKey, types.YearBase)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fallback.calls.Load())
	assert.Equal(t, 1, store.puts)
}

type failingProvider struct{}

func (failingProvider) Snapshot(_ context.Context, key types.SnapshotKey, yt types.YearType) (types.Snapshot, error) {
	return types.Snapshot{}, NotFound(key, yt)
}

func TestMemoizingProviderDoesNotStoreFailures(t *testing.T) {
	store := newMemStore()
	p := NewMemoizingProvider(store, failingProvider{}, zap.NewNop().Sugar())

	_, err := p.Snapshot(context.Background(), testKey, types.YearFuture)
	assert.True(t, errors.Is(err, ErrSnapshotNotFound))
	assert.Zero(t, store.puts)
}

func TestCommandRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	tests := []struct {
		name     string
		script   string
		expected types.ModeMetrics
		notFound bool
		fails    bool
	}{
		{
			name:     "modes decoded",
			script:   `cat >/dev/null; echo '{"modes":{"car":{"trips":10,"miles":20,"hours":3},"all":{"trips":1}}}'`,
			expected: types.ModeMetrics{Trips: 11, Miles: 20, Hours: 3},
		},
		{name: "not found", script: `cat >/dev/null; echo '{"found":false}'`, notFound: true},
		{name: "non-zero exit", script: `echo boom >&2; exit 2`, fails: true},
		{name: "garbage output", script: `echo nope`, fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &CommandRunner{Command: []string{"sh", "-c", tt.script}, Timeout: 10 * time.Second}
			snap, err := r.Snapshot(context.Background(), testKey, types.YearBase)
			switch {
			case tt.notFound:
				assert.ErrorIs(t, err, ErrSnapshotNotFound)
			case tt.fails:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrSnapshotNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, testKey, snap.Key)
				assert.Equal(t, tt.expected, snap.Modes[types.ModeCar])
			}
		})
	}
}

func TestCommandRunnerReceivesKey(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	// succeeds only when the key arrives on stdin
	script := `req=$(cat); case "$req" in *'"recovery_stage":3'*'"year_type":"future"'*) echo '{"modes":{}}';; *) exit 1;; esac`
	r := &CommandRunner{Command: []string{"sh", "-c", script}}
	_, err := r.Snapshot(context.Background(), testKey, types.YearFuture)
	assert.NoError(t, err)
}
