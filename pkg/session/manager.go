package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/panel/internal/logging"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/ports"
	"github.com/aretw0/panel/pkg/registry"
	"github.com/aretw0/panel/pkg/settings"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed session lock may be held.
const DefaultLockTTL = 30 * time.Second

// Asker runs the panel against a roster snapshot. *panel.Engine satisfies it.
type Asker interface {
	AskView(ctx context.Context, view *registry.View, question string, cfg domain.ModelConfig) (*domain.PanelResponse, error)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker   ports.DistributedLocker // Optional distributed locker
	lockTTL  time.Duration
	maxTurns int
	model    domain.ModelConfig
	logger   *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL for distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithMaxTurns keeps only the most recent n transcript turns. Zero keeps all.
func WithMaxTurns(n int) Option {
	return func(m *Manager) {
		m.maxTurns = n
	}
}

// WithDefaultModel sets the model parameters new sessions start from.
// An invalid config is ignored.
func WithDefaultModel(cfg domain.ModelConfig) Option {
	return func(m *Manager) {
		if cfg.Validate() == nil {
			m.model = cfg
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		model:   domain.DefaultModelConfig(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	var state *domain.SessionState
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, sessionID)
		return err
	})
	return state, err
}

// LoadOrStart tries to load a session. If not found, it initializes a new one
// with the default roster and the manager's default model and persists it
// immediately.
func (m *Manager) LoadOrStart(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	var state *domain.SessionState
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, sessionID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		state = m.newState(sessionID)
		// Persist immediately to reserve the ID
		if err := m.store.Save(ctx, sessionID, state); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		m.logger.Debug("session started", "session_id", sessionID, "experts", len(state.Experts))
		return nil
	})
	return state, err
}

// loadOrNew must be called with the session lock held.
func (m *Manager) loadOrNew(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	state, err := m.store.Load(ctx, sessionID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}
	return m.newState(sessionID), nil
}

func (m *Manager) newState(sessionID string) *domain.SessionState {
	state := domain.NewSessionState(sessionID)
	state.Model = m.model
	return state
}

// Save persists the session state.
func (m *Manager) Save(ctx context.Context, sessionID string, state *domain.SessionState) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, state)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Registry returns a registry built from the session's current roster.
// Edits to it are not persisted; use MutateRegistry for that.
func (m *Manager) Registry(ctx context.Context, sessionID string) (*registry.Registry, error) {
	state, err := m.LoadOrStart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return registry.New(state.Experts...)
}

// MutateRegistry loads the session roster into a registry, applies fn and
// persists the result. If fn fails nothing is saved and its error is returned
// unchanged, so typed registry errors reach the caller intact.
func (m *Manager) MutateRegistry(ctx context.Context, sessionID string, fn func(*registry.Registry) error) (*domain.SessionState, error) {
	var out *domain.SessionState
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := m.loadOrNew(ctx, sessionID)
		if err != nil {
			return err
		}
		reg, err := registry.New(state.Experts...)
		if err != nil {
			return fmt.Errorf("stored roster of session %s is corrupt: %w", sessionID, err)
		}
		if err := fn(reg); err != nil {
			return err
		}

		state.Experts = reg.List()
		state.UpdatedAt = time.Now().UTC()
		if err := m.store.Save(ctx, sessionID, state); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		out = state
		return nil
	})
	return out, err
}

// MutateModel applies fn to the session's model settings and persists the
// result. settings.Store validates every change, so an invalid Set or Import
// leaves the stored configuration untouched.
func (m *Manager) MutateModel(ctx context.Context, sessionID string, fn func(*settings.Store) error) (*domain.SessionState, error) {
	var out *domain.SessionState
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := m.loadOrNew(ctx, sessionID)
		if err != nil {
			return err
		}
		store, err := settings.New(state.Model)
		if err != nil {
			return fmt.Errorf("stored model of session %s is invalid: %w", sessionID, err)
		}
		if err := fn(store); err != nil {
			return err
		}

		state.Model = store.Current()
		state.UpdatedAt = time.Now().UTC()
		if err := m.store.Save(ctx, sessionID, state); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		out = state
		return nil
	})
	return out, err
}

// SetModel validates and stores new model parameters for the session.
func (m *Manager) SetModel(ctx context.Context, sessionID string, cfg domain.ModelConfig) (*domain.SessionState, error) {
	return m.MutateModel(ctx, sessionID, func(s *settings.Store) error {
		return s.Set(cfg)
	})
}

// AppendTurn adds a transcript entry, trimming old turns when WithMaxTurns is set.
func (m *Manager) AppendTurn(ctx context.Context, sessionID string, turn domain.Turn) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := m.loadOrNew(ctx, sessionID)
		if err != nil {
			return err
		}
		if turn.ID == "" {
			turn.ID = uuid.NewString()
		}
		if turn.CreatedAt.IsZero() {
			turn.CreatedAt = time.Now().UTC()
		}
		state.Transcript = append(state.Transcript, turn)
		if m.maxTurns > 0 && len(state.Transcript) > m.maxTurns {
			state.Transcript = state.Transcript[len(state.Transcript)-m.maxTurns:]
		}
		state.UpdatedAt = time.Now().UTC()
		return m.store.Save(ctx, sessionID, state)
	})
}

// Ask runs the panel for a session. The request context carries the session
// ID (see IDFromContext) so hooks can route events. The session lock is held only to read
// the roster and model and again to append the transcript turn, so roster
// edits can proceed while the experts are thinking; they do not affect the
// request already in flight.
func (m *Manager) Ask(ctx context.Context, sessionID string, asker Asker, question string) (*domain.PanelResponse, error) {
	state, err := m.LoadOrStart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(state.Experts...)
	if err != nil {
		return nil, fmt.Errorf("stored roster of session %s is corrupt: %w", sessionID, err)
	}

	resp, err := asker.AskView(ContextWithID(ctx, sessionID), reg.Snapshot(), question, state.Model)
	if err != nil {
		return nil, err
	}

	turn := domain.Turn{
		Question: resp.Question,
		Answer:   resp.FinalText,
		Opinions: resp.Opinions,
		Model:    resp.Model,
	}
	if err := m.AppendTurn(ctx, sessionID, turn); err != nil {
		return resp, fmt.Errorf("answer produced but transcript not saved: %w", err)
	}
	return resp, nil
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
