package services

import "context"

// Session is the authenticated user behind a request. Token is forwarded as
// the bearer credential to the processing service.
type Session struct {
	UserID   string
	Email    string
	Username string
	Token    string
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns nil when the context carries no session.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// ContextAuthenticator reads the current user from the request context.
type ContextAuthenticator struct{}

func (ContextAuthenticator) CurrentUser(ctx context.Context) *Session {
	s := SessionFromContext(ctx)
	if s == nil || s.UserID == "" {
		return nil
	}
	return s
}

// SessionFromClaims builds a Session for a validated token.
func SessionFromClaims(c *Claims, token string) *Session {
	return &Session{
		UserID:   c.UserID.String(),
		Email:    c.Email,
		Username: c.Username,
		Token:    token,
	}
}
