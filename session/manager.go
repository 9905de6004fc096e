// Package session establishes and observes the signed-in identity and gates
// routes on it. The manager is the only writer of the identity record,
// downstream consumers get read-only snapshots.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/moastrends/newsroom/model"
	Logger "github.com/moastrends/newsroom/utils/log"
	"github.com/pkg/errors"
)

// lookupTimeout bounds a single identity resolution against the profile
// store. A resolution that exceeds it settles as unauthenticated.
const lookupTimeout = 30 * time.Second

// Source is the session surface the manager observes: the current session of
// this principal and the stream of change notifications for it.
type Source interface {
	// Session returns the account id of the current session, empty when there
	// is none. No session is not an error.
	Session(ctx context.Context) (string, error)

	// Changes delivers the account id carried by every subsequent session
	// change, empty string meaning signed out. The channel closes when ctx is
	// cancelled.
	Changes(ctx context.Context) (<-chan string, error)
}

// ProfileStore is the slice of the row store identity resolution needs.
type ProfileStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// Manager resolves the account id behind the session to a full identity
// record and keeps it fresh across session changes. Every failure on that
// path settles as unauthenticated rather than erroring, so navigation is
// never blocked by a flaky lookup.
type Manager struct {
	src      Source
	profiles ProfileStore

	mu        sync.Mutex
	identity  *model.Identity
	resolving bool
	settled   chan struct{}

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func NewManager(src Source, profiles ProfileStore) *Manager {
	return &Manager{
		src:      src,
		profiles: profiles,
		// Construction starts in the resolving state so gates formed before
		// Start completes still wait instead of redirecting.
		resolving: true,
		settled:   make(chan struct{}),
	}
}

// Start performs the initial identity resolution and subscribes to session
// changes for the lifetime of the manager. It returns once the first
// resolution settled. The subscription is released by Close.
func (m *Manager) Start(ctx context.Context) error {
	accountId, err := m.src.Session(ctx)
	if err != nil {
		Logger.Log.Warn("fail to read current session, treating as unauthenticated: ", err)
		accountId = ""
	}
	m.finishResolve(ResolveIdentity(ctx, m.profiles, accountId))

	watchCtx, cancel := context.WithCancel(context.Background())
	changes, err := m.src.Changes(watchCtx)
	if err != nil {
		cancel()
		return errors.Wrap(err, "subscribe to session changes")
	}
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.watch(watchCtx, changes)
	return nil
}

func (m *Manager) watch(ctx context.Context, changes <-chan string) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case accountId, ok := <-changes:
			if !ok {
				return
			}
			m.beginResolve()
			m.finishResolve(ResolveIdentity(ctx, m.profiles, accountId))
		}
	}
}

// ResolveIdentity turns an account id into an identity snapshot. Lookup
// failures and missing profile rows resolve to nil (unauthenticated), logged
// but never returned: this is the deliberate fail-open policy of the session
// layer.
func ResolveIdentity(ctx context.Context, profiles ProfileStore, accountId string) *model.Identity {
	if accountId == "" {
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	user, err := profiles.GetUser(lookupCtx, accountId)
	if err != nil {
		Logger.Log.Warn("identity lookup failed, treating as unauthenticated: ", err)
		return nil
	}
	return model.IdentityOf(user)
}

func (m *Manager) beginResolve() {
	m.mu.Lock()
	if !m.resolving {
		m.resolving = true
		m.settled = make(chan struct{})
	}
	m.mu.Unlock()
}

func (m *Manager) finishResolve(ident *model.Identity) {
	m.mu.Lock()
	m.identity = ident
	if m.resolving {
		m.resolving = false
		close(m.settled)
	}
	m.mu.Unlock()
}

// Identity returns the current snapshot and whether a resolution is still in
// flight. Callers that must not act on a loading state should use
// WaitSettled instead.
func (m *Manager) Identity() (*model.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity, m.resolving
}

// Current returns the settled identity, nil while resolving or when
// unauthenticated. It satisfies the identity source interfaces of the feed
// and comment controllers.
func (m *Manager) Current() *model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolving {
		return nil
	}
	return m.identity
}

// WaitSettled blocks until no resolution is in flight and returns the
// identity at that moment.
func (m *Manager) WaitSettled(ctx context.Context) (*model.Identity, error) {
	for {
		m.mu.Lock()
		if !m.resolving {
			ident := m.identity
			m.mu.Unlock()
			return ident, nil
		}
		ch := m.settled
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
		}
	}
}

// Close releases the session change subscription. Safe to call more than
// once and on a manager that was never started.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		if m.done != nil {
			<-m.done
		}
	})
}
