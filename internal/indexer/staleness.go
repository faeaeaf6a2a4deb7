package indexer

import (
	"context"
	"log/slog"
	"time"

	qerrors "github.com/quarrysearch/quarry/internal/errors"
	"github.com/quarrysearch/quarry/internal/store"
)

// DefaultStaleThreshold is how old a manifest may be before searches
// trigger a synchronous refresh.
const DefaultStaleThreshold = 5 * time.Minute

// Monitor decides whether the index needs a refresh before a search.
// There are no background timers: the check runs inline and blocks the
// caller while refreshing.
type Monitor struct {
	store     *store.Store
	indexer   *Indexer
	threshold time.Duration
	log       *slog.Logger
}

// NewMonitor creates a Monitor. A non-positive threshold uses the
// default.
func NewMonitor(st *store.Store, ix *Indexer, threshold time.Duration, logger *slog.Logger) *Monitor {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{store: st, indexer: ix, threshold: threshold, log: logger}
}

// IsStale reports whether the manifest is absent or older than the
// threshold.
func (m *Monitor) IsStale(ctx context.Context) (bool, error) {
	manifest, err := m.store.ReadManifest(ctx)
	if err != nil {
		return false, err
	}
	if manifest == nil {
		return true, nil
	}
	return time.Since(manifest.LastIndexedAt) > m.threshold, nil
}

// EnsureFresh runs an indexing pass when the manifest is stale. Returns
// the pass report, or nil when the index was already fresh. A pass
// already running elsewhere is treated as a refresh in progress, not an
// error: the search proceeds against the current index.
func (m *Monitor) EnsureFresh(ctx context.Context, opts Options) (*Report, error) {
	stale, err := m.IsStale(ctx)
	if err != nil {
		return nil, err
	}
	if !stale {
		return nil, nil
	}

	report, err := m.indexer.Run(ctx, opts)
	if err != nil {
		if qerrors.IsCode(err, qerrors.ErrCodeIndexBusy) {
			m.log.Warn("index_refresh_in_progress", slog.String("detail", err.Error()))
			return nil, nil
		}
		return nil, err
	}
	return report, nil
}
