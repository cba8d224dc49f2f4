package middleware

import (
	"net/http"
	"strings"
)

// SessionCookie marks a logged-in dashboard session.
const SessionCookie = "authenticated"

// publicPaths are reachable without a session.
var publicPaths = map[string]bool{
	"/login":      true,
	"/auth/login": true,
	"/health":     true,
}

func isPublic(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/static/")
}

// expectsJSON reports whether the caller is the dashboard's script or an API
// client rather than a browser page load.
func expectsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
		r.Header.Get("Content-Type") == "application/json"
}

// AuthMiddleware guards the dashboard, the analytics API and the live feeds.
// Without a session API calls get 401 and pages redirect to /login.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value == "true" {
			next.ServeHTTP(w, r)
			return
		}

		if expectsJSON(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}
