package session

import (
	"context"
	"sync"
)

type contextKey string

const tokenKey contextKey = "session_token"

// WithToken attaches a bearer token to the context so the provider can
// resolve the request's session.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func tokenFrom(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey).(string); ok {
		return token
	}
	return ""
}

// TokenProvider is an in-memory identity provider mapping opaque bearer
// tokens to sessions. It stands in for a real identity service; the gate
// only ever sees the IdentityProvider interface.
type TokenProvider struct {
	mtx         sync.RWMutex
	sessions    map[string]Session
	subscribers []func(*Session)
}

func NewTokenProvider() *TokenProvider {
	return &TokenProvider{
		sessions: make(map[string]Session),
	}
}

// Register makes token resolve to sess and notifies subscribers of the
// sign-in.
func (p *TokenProvider) Register(token string, sess Session) {
	p.mtx.Lock()
	p.sessions[token] = sess
	subs := append([](func(*Session))(nil), p.subscribers...)
	p.mtx.Unlock()

	for _, fn := range subs {
		if fn != nil {
			fn(&sess)
		}
	}
}

func (p *TokenProvider) CurrentSession(ctx context.Context) (*Session, error) {
	token := tokenFrom(ctx)
	if token == "" {
		return nil, nil
	}

	p.mtx.RLock()
	defer p.mtx.RUnlock()

	sess, ok := p.sessions[token]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (p *TokenProvider) OnSessionChange(fn func(*Session)) (unsubscribe func()) {
	p.mtx.Lock()
	p.subscribers = append(p.subscribers, fn)
	idx := len(p.subscribers) - 1
	p.mtx.Unlock()

	return func() {
		p.mtx.Lock()
		defer p.mtx.Unlock()
		p.subscribers[idx] = nil
	}
}

// SignOut revokes the context's token and notifies subscribers.
func (p *TokenProvider) SignOut(ctx context.Context) error {
	token := tokenFrom(ctx)

	p.mtx.Lock()
	delete(p.sessions, token)
	subs := append([](func(*Session))(nil), p.subscribers...)
	p.mtx.Unlock()

	for _, fn := range subs {
		if fn != nil {
			fn(nil)
		}
	}
	return nil
}

var _ IdentityProvider = (*TokenProvider)(nil)
