package http

import (
	"context"
	"net/http"
	"strings"

	"centsible/internal/auth"
	"centsible/internal/history"
	applog "centsible/internal/log"
)

type sessionKey struct{}

// sessionFrom returns the session stored by requireSession.
func sessionFrom(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(auth.Session)
	return sess, ok
}

func (s *Server) lookupSession(r *http.Request) (auth.Session, error) {
	c, err := r.Cookie(auth.CookieName)
	if err != nil {
		return auth.Session{}, auth.ErrNoSession
	}
	return s.sessions.Lookup(c.Value)
}

// requireSession answers requests without a valid session: 401 for API
// calls, HX-Redirect for htmx partials and a redirect for pages.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.lookupSession(r)
		if err == nil {
			next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
			return
		}
		switch {
		case isHTMX(r):
			NewHTMXResponse().Status(http.StatusUnauthorized).Redirect(history.SignInPath).Write(w)
		case r.Method == http.MethodGet && !wantsJSON(r) && !isAPIPath(r.URL.Path):
			http.Redirect(w, r, history.SignInPath, http.StatusSeeOther)
		default:
			JSONError(http.StatusUnauthorized, "sign-in required").Write(w)
		}
	}
}

func isAPIPath(p string) bool {
	return strings.HasPrefix(p, "/api/")
}

type signInData struct {
	Username string
	Error    string
}

func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	s.renderSignIn(w, r, http.StatusOK, signInData{Username: s.credentials.Username})
}

func (s *Server) renderSignIn(w http.ResponseWriter, r *http.Request, status int, data signInData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, "signin.html", data); err != nil {
		applog.FromContext(r.Context()).ErrorOp(r.Context(), "Sign-in template execution failed", applog.OpRender, err)
	}
}

// handleSignIn checks the credentials and starts a session. API clients get
// 204, browsers are sent to the history page.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		JSONError(http.StatusBadRequest, "malformed request body").Write(w)
		return
	}
	username, password := p.Get("username"), p.Get("password")
	logger := applog.FromContext(r.Context())

	if err := s.credentials.Check(username, password); err != nil {
		logger.WarnContext(r.Context(), "Sign-in rejected",
			applog.FieldOperation, applog.OpSignIn,
			applog.FieldClientIP, s.detector.ExtractClientIP(r))
		if wantsJSON(r) || p.IsJSON() {
			JSONError(http.StatusUnauthorized, "invalid username or password").Write(w)
			return
		}
		s.renderSignIn(w, r, http.StatusUnauthorized, signInData{Username: username, Error: "Invalid username or password"})
		return
	}

	sess := s.sessions.Create(username)
	http.SetCookie(w, s.sessionCookie(r, sess.ID, int(s.sessions.TTL().Seconds())))
	logger.InfoContext(r.Context(), "Signed in", applog.FieldOperation, applog.OpSignIn, "username", username)

	switch {
	case wantsJSON(r) || p.IsJSON():
		w.WriteHeader(http.StatusNoContent)
	case isHTMX(r):
		NewHTMXResponse().Redirect("/history").Write(w)
	default:
		http.Redirect(w, r, "/history", http.StatusSeeOther)
	}
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if c, err := r.Cookie(auth.CookieName); err == nil {
		s.sessions.Delete(c.Value)
	}
	http.SetCookie(w, s.sessionCookie(r, "", -1))

	switch {
	case wantsJSON(r):
		w.WriteHeader(http.StatusNoContent)
	case isHTMX(r):
		NewHTMXResponse().Redirect(history.SignInPath).Write(w)
	default:
		http.Redirect(w, r, history.SignInPath, http.StatusSeeOther)
	}
}

// sessionCookie is Secure when configured or when the request came over
// TLS. A negative maxAge deletes the cookie.
func (s *Server) sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secureCookies || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}
