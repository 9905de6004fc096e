package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/moastrends/newsroom/model"
	"github.com/moastrends/newsroom/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// fakeSource is an in-test session surface with a controllable current
// session and change stream.
type fakeSource struct {
	mu      sync.Mutex
	account string
	err     error
	changes chan string
}

func newFakeSource(account string) *fakeSource {
	return &fakeSource{account: account, changes: make(chan string)}
}

func (f *fakeSource) Session(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, f.err
}

func (f *fakeSource) Changes(ctx context.Context) (<-chan string, error) {
	return f.changes, nil
}

func seedUser(st *store.FakeStore, id string, role model.Role) {
	st.Users[id] = model.User{Id: id, Email: id + "@example.com", FullName: "User " + id, Role: role}
}

func startManager(t *testing.T, src Source, st *store.FakeStore) *Manager {
	t.Helper()
	m := NewManager(src, st)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(m.Close)
	return m
}

func TestStartWithoutSessionResolvesNil(t *testing.T) {
	m := startManager(t, newFakeSource(""), store.NewFakeStore())

	ident, resolving := m.Identity()
	require.False(t, resolving)
	require.Nil(t, ident)
}

func TestStartResolvesFullIdentity(t *testing.T) {
	st := store.NewFakeStore()
	seedUser(st, "u1", model.RoleAdmin)
	m := startManager(t, newFakeSource("u1"), st)

	ident := m.Current()
	require.NotNil(t, ident)
	require.Equal(t, "u1", ident.Id)
	require.Equal(t, "u1@example.com", ident.Email)
	require.Equal(t, "User u1", ident.FullName)
	require.True(t, ident.IsAdmin())
}

func TestLookupFailureFailsOpenToUnauthenticated(t *testing.T) {
	st := store.NewFakeStore()
	seedUser(st, "u1", model.RoleUser)
	st.FailWith("GetUser", errors.New("database on fire"))

	m := startManager(t, newFakeSource("u1"), st)
	require.Nil(t, m.Current())
}

func TestMissingProfileRowFailsOpen(t *testing.T) {
	m := startManager(t, newFakeSource("ghost"), store.NewFakeStore())
	require.Nil(t, m.Current())
}

func TestSessionReadFailureFailsOpen(t *testing.T) {
	src := newFakeSource("")
	src.err = errors.New("auth service unreachable")

	m := NewManager(src, store.NewFakeStore())
	require.NoError(t, m.Start(context.Background()))
	defer m.Close()
	require.Nil(t, m.Current())
}

func TestSessionChangeReResolvesIdentity(t *testing.T) {
	st := store.NewFakeStore()
	seedUser(st, "u1", model.RoleUser)
	seedUser(st, "u2", model.RoleAdmin)

	src := newFakeSource("u1")
	m := startManager(t, src, st)
	require.Equal(t, "u1", m.Current().Id)

	src.changes <- "u2"
	require.Eventually(t, func() bool {
		ident := m.Current()
		return ident != nil && ident.Id == "u2"
	}, 2*time.Second, 10*time.Millisecond)

	// signed out
	src.changes <- ""
	require.Eventually(t, func() bool {
		ident, resolving := m.Identity()
		return !resolving && ident == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseReleasesSubscriptionOnEveryPath(t *testing.T) {
	st := store.NewFakeStore()
	src := newFakeSource("")
	m := startManager(t, src, st)

	m.Close()
	// A second close is a no-op, not a panic.
	m.Close()

	// Closing a never-started manager must also be safe.
	NewManager(newFakeSource(""), st).Close()
}

func TestGatesNeverRedirectWhileResolving(t *testing.T) {
	const lookupDelay = 300 * time.Millisecond

	st := store.NewFakeStore()
	seedUser(st, "u1", model.RoleAdmin)
	st.DelayOp("GetUser", lookupDelay)

	m := NewManager(newFakeSource("u1"), st)

	// Before Start settles, the manager reports a resolution in flight and
	// Current stays nil: the caller shows a loading placeholder, no redirect.
	ident, resolving := m.Identity()
	require.True(t, resolving)
	require.Nil(t, ident)

	startedAt := time.Now()
	go func() {
		_ = m.Start(context.Background())
	}()
	defer m.Close()

	pass, redirect, err := m.AdminGate().Check(context.Background())
	require.NoError(t, err)
	require.True(t, pass, "admin principal must pass once resolution settles")
	require.Empty(t, redirect)
	require.GreaterOrEqual(t, time.Since(startedAt), lookupDelay,
		"gate decided before the slow identity resolution settled")

	pass, redirect, err = m.AuthGate().Check(context.Background())
	require.NoError(t, err)
	require.True(t, pass)
	require.Empty(t, redirect)
}

func TestGateDecisionsOnceSettled(t *testing.T) {
	ctx := context.Background()

	st := store.NewFakeStore()
	seedUser(st, "reader", model.RoleUser)
	seedUser(st, "editor", model.RoleAdmin)

	// unauthenticated: both gates redirect
	m := startManager(t, newFakeSource(""), st)
	pass, redirect, err := m.AuthGate().Check(ctx)
	require.NoError(t, err)
	require.False(t, pass)
	require.Equal(t, LoginRoute, redirect)

	pass, redirect, err = m.AdminGate().Check(ctx)
	require.NoError(t, err)
	require.False(t, pass)
	require.Equal(t, AdminLoginRoute, redirect)

	// plain user: auth gate passes, admin gate redirects
	m = startManager(t, newFakeSource("reader"), st)
	pass, _, err = m.AuthGate().Check(ctx)
	require.NoError(t, err)
	require.True(t, pass)

	pass, redirect, err = m.AdminGate().Check(ctx)
	require.NoError(t, err)
	require.False(t, pass)
	require.Equal(t, AdminLoginRoute, redirect)

	// admin: both pass
	m = startManager(t, newFakeSource("editor"), st)
	pass, _, err = m.AuthGate().Check(ctx)
	require.NoError(t, err)
	require.True(t, pass)
	pass, _, err = m.AdminGate().Check(ctx)
	require.NoError(t, err)
	require.True(t, pass)
}
