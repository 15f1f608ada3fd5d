package ui

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/me/shopadmin/internal/store"
	"github.com/me/shopadmin/pkg/model"
)

const (
	// SessionCookieName names the cookie carrying the session ID.
	SessionCookieName = "shopadmin_session"
	// SessionDuration is the lifetime of a login whose token carries no
	// earlier expiry.
	SessionDuration = 24 * time.Hour
)

// Sessions maps browser cookies to stored API tokens. The cookie holds only
// an opaque ID; the token never leaves the server.
type Sessions struct {
	store  store.Store
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessions returns a session keeper over st. A non-positive ttl uses
// SessionDuration. secure marks the cookie HTTPS-only.
func NewSessions(st store.Store, ttl time.Duration, secure bool) *Sessions {
	if ttl <= 0 {
		ttl = SessionDuration
	}
	return &Sessions{store: st, ttl: ttl, secure: secure, now: time.Now}
}

// Start stores a login for username and sets its cookie on w. The session
// ends no later than the token does.
func (s *Sessions) Start(ctx context.Context, w http.ResponseWriter, username, token string, tokenExp time.Time) (*model.Session, error) {
	now := s.now()
	end := now.Add(s.ttl)
	if !tokenExp.IsZero() && tokenExp.Before(end) {
		end = tokenExp
	}

	sess := &model.Session{
		ID:        "sess_" + rand.Text(),
		Username:  username,
		Token:     token,
		TokenExp:  tokenExp,
		CreatedAt: now,
		ExpiresAt: end,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	http.SetCookie(w, s.cookie(sess.ID, sess.ExpiresAt))
	return sess, nil
}

// Lookup returns the live session named by r's cookie. A request without
// the cookie, or with a stale one, yields nil.
func (s *Sessions) Lookup(r *http.Request) (*model.Session, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}
	return s.get(r.Context(), c.Value)
}

// get loads a session by ID and drops it when it or its token has lapsed.
func (s *Sessions) get(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	if !sess.ValidAt(s.now()) {
		_ = s.store.DeleteSession(ctx, id)
		return nil, nil
	}
	return sess, nil
}

// End forgets the session with id and clears the cookie. An empty id only
// clears the cookie.
func (s *Sessions) End(ctx context.Context, w http.ResponseWriter, id string) error {
	var err error
	if id != "" {
		err = s.store.DeleteSession(ctx, id)
	}
	c := s.cookie("", time.Time{})
	c.MaxAge = -1
	http.SetCookie(w, c)
	return err
}

// Purge deletes every lapsed session and reports how many went.
func (s *Sessions) Purge(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx)
}

func (s *Sessions) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// tokenSession hands a stored login to the catalog client. Its Logout
// deletes the stored row, which is how a rejected token ends the browser's
// login.
type tokenSession struct {
	sessions *Sessions
	sess     *model.Session
}

func (t tokenSession) Token() string { return t.sess.Token }

func (t tokenSession) Logout(ctx context.Context) error {
	return t.sessions.store.DeleteSession(ctx, t.sess.ID)
}
