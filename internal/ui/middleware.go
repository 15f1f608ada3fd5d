package ui

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/me/shopadmin/pkg/model"
)

type sessionKey struct{}

// SessionFromContext returns the login attached by AuthMiddleware, or nil.
func SessionFromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionKey{}).(*model.Session)
	return sess
}

// AuthMiddleware admits requests carrying a live session and attaches it to
// the context. Anyone else goes to the login page; a GET for a specific view
// is remembered in next so signing in lands back on it.
func (ui *UI) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := ui.sessions.Lookup(r)
		if err != nil {
			ui.logger.Error("session lookup", "error", err)
		}
		if sess == nil {
			http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// loginURL is where an anonymous request is sent.
func loginURL(r *http.Request) string {
	target := r.URL.RequestURI()
	if r.Method != http.MethodGet || target == "/products" || target == "/" {
		return "/login"
	}
	return "/login?" + url.Values{"next": {target}}.Encode()
}

// safeNext returns target when it is a path on this server, and the product
// list otherwise.
func safeNext(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/products"
	}
	return target
}
