package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/paykit/kvstore"
	"github.com/opd-ai/paykit/limits"
	"github.com/opd-ai/paykit/metrics"
)

// errCorruptLedger marks a ledger blob that failed to decode.
var errCorruptLedger = errors.New("corrupted ledger")

// Guard is a persisted single-use nonce ledger for one namespace. It keeps no
// copy of the ledger: every call reads the store, and every change is a
// kvstore.Update, so guards in other goroutines or processes sharing the
// store see each other's marks.
type Guard struct {
	mu           sync.Mutex
	store        kvstore.Store
	namespace    string
	key          string
	maxRecords   int
	timeProvider TimeProvider
	logger       *logrus.Entry
	metrics      *metrics.Replay
}

// Option configures a Guard.
type Option func(*Guard)

// WithMaxRecords bounds the ledger size. Values below 1 keep the default.
func WithMaxRecords(n int) Option {
	return func(g *Guard) {
		if n > 0 {
			g.maxRecords = n
		}
	}
}

// WithTimeProvider sets the clock used for capacity purges and RunCleanup.
func WithTimeProvider(tp TimeProvider) Option {
	return func(g *Guard) {
		if tp != nil {
			g.timeProvider = tp
		}
	}
}

// WithLogger sets the base log entry.
func WithLogger(entry *logrus.Entry) Option {
	return func(g *Guard) {
		if entry != nil {
			g.logger = entry
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Replay) Option {
	return func(g *Guard) { g.metrics = m }
}

// NewGuard creates a guard persisting to store under LedgerKey(namespace).
// Construction never touches the store.
func NewGuard(store kvstore.Store, namespace string, opts ...Option) (*Guard, error) {
	if store == nil {
		return nil, errors.New("replay: store is required")
	}
	key := LedgerKey(namespace)
	if namespace == "" {
		return nil, errors.New("replay: namespace is required")
	}
	if err := kvstore.ValidateKey(key); err != nil {
		return nil, fmt.Errorf("replay: namespace: %w", err)
	}

	g := &Guard{
		store:        store,
		namespace:    namespace,
		key:          key,
		maxRecords:   limits.DefaultMaxNonceRecords,
		timeProvider: DefaultTimeProvider{},
		logger:       logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.WithFields(logrus.Fields{
		"package":   "replay",
		"namespace": namespace,
	})
	return g, nil
}

// Namespace returns the namespace this guard owns.
func (g *Guard) Namespace() string { return g.namespace }

// CheckAndMark atomically checks whether nonce has been seen and, if not,
// records it with expiresAt and persists the ledger. It returns true only for
// the first observation of a nonce. A ledger that cannot be read or written
// yields false and ErrStorageUnavailable.
func (g *Guard) CheckAndMark(ctx context.Context, nonce string, expiresAt int64) (bool, error) {
	nonce, err := NormalizeNonce(nonce)
	if err != nil {
		g.metrics.ObserveRejected()
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var replayed, full bool
	var purged int
	records, err := g.updateLocked(ctx, "check_and_mark", func(records map[string]int64) bool {
		replayed, full, purged = false, false, 0
		if _, used := records[nonce]; used {
			replayed = true
			return false
		}
		if len(records) >= g.maxRecords {
			purged = purgeExpired(records, g.timeProvider.Now().Unix())
			if len(records) >= g.maxRecords {
				full = true
				return purged > 0
			}
		}
		records[nonce] = expiresAt
		return true
	})
	if err != nil {
		return false, err
	}

	switch {
	case replayed:
		g.logger.WithFields(operationFields("check_and_mark", "replay", nonceFields(nonce))).
			Warn("Replay attack detected: nonce already used")
		g.metrics.ObserveReplay()
		return false, nil
	case full:
		g.logger.WithFields(logrus.Fields{
			"records":     len(records),
			"max_records": g.maxRecords,
			"purged":      purged,
		}).Error("Nonce ledger full, refusing new nonce")
		g.metrics.ObserveRejected()
		if purged > 0 {
			g.metrics.ObserveCleanup(g.namespace, purged, len(records))
		}
		return false, fmt.Errorf("%w: %d unexpired records", ErrLedgerFull, len(records))
	}

	if purged > 0 {
		g.metrics.ObserveCleanup(g.namespace, purged, len(records))
	}
	g.metrics.ObserveAccepted(g.namespace, len(records))
	return true, nil
}

// Consume is CheckAndMark returning ErrReplayDetected instead of false.
func (g *Guard) Consume(ctx context.Context, nonce string, expiresAt int64) error {
	fresh, err := g.CheckAndMark(ctx, nonce, expiresAt)
	if err != nil {
		return err
	}
	if !fresh {
		return ErrReplayDetected
	}
	return nil
}

// IsUsed reports whether nonce is in the ledger without modifying it. If the
// ledger is unreadable it reports true along with the error.
func (g *Guard) IsUsed(ctx context.Context, nonce string) (bool, error) {
	nonce, err := NormalizeNonce(nonce)
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	records, err := g.readLocked(ctx)
	if err != nil {
		return true, err
	}
	_, used := records[nonce]
	return used, nil
}

// CleanupExpired deletes every record whose expiresAt is before the given
// epoch second and returns how many were removed.
func (g *Guard) CleanupExpired(ctx context.Context, before int64) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	records, err := g.updateLocked(ctx, "cleanup", func(records map[string]int64) bool {
		removed = purgeExpired(records, before)
		return removed > 0
	})
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		g.metrics.ObserveSize(g.namespace, len(records))
		return 0, nil
	}

	g.logger.WithFields(logrus.Fields{
		"removed":   removed,
		"remaining": len(records),
	}).Info("Cleaned up expired nonces")
	g.metrics.ObserveCleanup(g.namespace, removed, len(records))
	return removed, nil
}

// Count returns the number of records in the ledger.
func (g *Guard) Count(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	records, err := g.readLocked(ctx)
	if err != nil {
		return 0, err
	}
	g.metrics.ObserveSize(g.namespace, len(records))
	return len(records), nil
}

// Clear removes every record and deletes the persisted ledger.
func (g *Guard) Clear(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.store.Delete(ctx, g.key); err != nil {
		g.logger.WithFields(operationFields("clear", "failed")).WithError(err).
			Error("Failed to delete nonce ledger")
		g.metrics.ObserveStorageError()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	g.metrics.ObserveSize(g.namespace, 0)
	g.logger.Info("Nonce ledger cleared")
	return nil
}

// readLocked loads the current ledger. A missing ledger is empty.
func (g *Guard) readLocked(ctx context.Context) (map[string]int64, error) {
	data, err := g.store.Get(ctx, g.key)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return make(map[string]int64), nil
	case err != nil:
		return nil, g.storageFailure("load", fmt.Errorf("read: %w", err))
	}

	records, err := decodeLedger(data)
	if err != nil {
		return nil, g.storageFailure("load", fmt.Errorf("%w: %v", errCorruptLedger, err))
	}
	return records, nil
}

// updateLocked runs mutate against the stored ledger inside one
// kvstore.Update and writes the result back when mutate reports a change.
// mutate may run more than once if the store retries, so it must reset any
// state it reports. The returned map is the ledger as last seen by mutate.
func (g *Guard) updateLocked(ctx context.Context, operation string, mutate func(records map[string]int64) bool) (map[string]int64, error) {
	var records map[string]int64
	err := kvstore.Update(ctx, g.store, g.key, func(current []byte, found bool) ([]byte, bool, error) {
		records = make(map[string]int64)
		if found {
			decoded, err := decodeLedger(current)
			if err != nil {
				return nil, false, fmt.Errorf("%w: %v", errCorruptLedger, err)
			}
			records = decoded
		}
		if !mutate(records) {
			return nil, false, nil
		}
		data, err := encodeLedger(records)
		if err != nil {
			return nil, false, err
		}
		return data, true, nil
	})
	if err != nil {
		return nil, g.storageFailure(operation, err)
	}
	return records, nil
}

// storageFailure logs and counts a ledger failure and wraps it so callers
// fail closed.
func (g *Guard) storageFailure(operation string, err error) error {
	if errors.Is(err, errCorruptLedger) {
		g.logger.WithFields(operationFields(operation, "corrupted")).WithError(err).
			Error("Nonce ledger is corrupted, failing closed")
	} else {
		g.logger.WithFields(operationFields(operation, "failed")).WithError(err).
			Error("Nonce ledger unavailable, failing closed")
	}
	g.metrics.ObserveStorageError()
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

func purgeExpired(records map[string]int64, before int64) int {
	removed := 0
	for nonce, expiresAt := range records {
		if expiresAt < before {
			delete(records, nonce)
			removed++
		}
	}
	return removed
}
