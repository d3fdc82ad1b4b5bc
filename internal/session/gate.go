package session

import (
	"context"
	"sync"

	"taskboard/internal/logger"
	"taskboard/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gate runs the identity check before the first load and on every session
// change pushed by the identity provider. A session for user A never loads
// or renders user B's working set, even transiently.
type Gate struct {
	identity IdentityProvider
	nav      Navigator
	newStore func(owner uuid.UUID) *store.Store

	mtx         sync.Mutex
	routeOwner  uuid.UUID
	current     *store.Store
	unsubscribe func()
}

func NewGate(identity IdentityProvider, nav Navigator, newStore func(owner uuid.UUID) *store.Store) *Gate {
	return &Gate{
		identity: identity,
		nav:      nav,
		newStore: newStore,
	}
}

// Bind verifies the current session against the routed owner and, on a
// match, ensures a loaded store for that owner. A missing session returns
// ErrSignedOut, a foreign session returns MismatchError; both also notify
// the navigator, and neither issues a load against routeOwner.
func (g *Gate) Bind(ctx context.Context, routeOwner uuid.UUID) (*store.Store, error) {
	sess, err := g.identity.CurrentSession(ctx)
	if err != nil {
		return nil, &store.Error{Code: store.CodeAuth, Message: "failed to verify session", Err: err}
	}

	if sess == nil {
		g.nav.ToSignIn()
		return nil, ErrSignedOut
	}

	if sess.UserID != routeOwner {
		logger.Warn("session subject does not match routed owner",
			zap.String("subject", sess.UserID.String()),
			zap.String("route_owner", routeOwner.String()))
		g.nav.ToDashboard(sess.UserID)
		return nil, &MismatchError{Subject: sess.UserID}
	}

	g.mtx.Lock()
	if g.current != nil && g.routeOwner == routeOwner {
		st := g.current
		g.mtx.Unlock()
		return st, nil
	}

	if g.current != nil {
		g.current.Close()
	}
	st := g.newStore(routeOwner)
	g.current = st
	g.routeOwner = routeOwner
	if g.unsubscribe == nil {
		g.unsubscribe = g.identity.OnSessionChange(g.onSessionChange)
	}
	g.mtx.Unlock()

	if err := st.Load(ctx); err != nil {
		// The store retains its Failed state and message; the caller
		// surfaces a retry path.
		return st, err
	}

	return st, nil
}

// Store returns the currently bound store, nil when none.
func (g *Gate) Store() *store.Store {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.current
}

// SignOut tears the working set down regardless of whether the provider
// call succeeds, then returns control to the unauthenticated entry point.
func (g *Gate) SignOut(ctx context.Context) error {
	err := g.identity.SignOut(ctx)
	g.teardown()
	g.nav.ToSignIn()
	return err
}

// Close detaches from the identity provider and drops the working set.
func (g *Gate) Close() {
	g.mtx.Lock()
	unsub := g.unsubscribe
	g.unsubscribe = nil
	g.mtx.Unlock()

	if unsub != nil {
		unsub()
	}
	g.teardown()
}

// onSessionChange re-runs the gate check when the identity collaborator
// pushes a change. Closing the store here is what discards any in-flight
// result keyed to the superseded session.
func (g *Gate) onSessionChange(sess *Session) {
	if sess == nil {
		g.teardown()
		g.nav.ToSignIn()
		return
	}

	g.mtx.Lock()
	matches := g.current != nil && g.routeOwner == sess.UserID
	g.mtx.Unlock()

	if !matches {
		g.teardown()
		g.nav.ToDashboard(sess.UserID)
	}
}

func (g *Gate) teardown() {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if g.current != nil {
		g.current.Close()
		g.current = nil
	}
	g.routeOwner = uuid.Nil
}
