package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vbonduro/ecosort/internal/api"
	"github.com/vbonduro/ecosort/internal/auth"
	"github.com/vbonduro/ecosort/internal/service"
)

const (
	sessionCookie = "ecosort_session"
	themeCookie   = "ecosort_theme"
)

const (
	msgInvalidCredentials = "Invalid credentials. Please try again."
	msgGenericFailure     = "An error occurred. Please try again."
)

// requireSession is the route guard: requests without a live session are
// sent to /signin, the rest carry the session in their context.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
		sess, err := s.auth.Session(r.Context(), id)
		if err != nil {
			http.Error(w, "failed to load session", http.StatusInternalServerError)
			s.logger.Error("load session failed", "error", err)
			return
		}
		if sess == nil {
			if id != "" {
				s.clearSessionCookie(w)
			}
			redirect(w, r, "/signin")
			return
		}
		next(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// endSession drops the current session after the API rejected its token.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if sess := auth.SessionFrom(r.Context()); sess != nil {
		if err := s.auth.SignOut(r.Context(), sess.ID); err != nil {
			s.logger.Error("delete session failed", "error", err)
		}
		s.logger.Info("session ended by api", "email", sess.Claims.Email)
	}
	s.clearSessionCookie(w)
	redirect(w, r, "/signin")
}

// failure answers a failed API call. An unauthorized token ends the session;
// anything else is reported inline, retargeted into the page's alert area for
// HTMX requests.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, api.ErrUnauthorized) {
		s.endSession(w, r)
		return
	}

	status, msg := http.StatusBadGateway, api.UserMessage(err, fallback)
	switch {
	case errors.Is(err, service.ErrForbidden):
		status, msg = http.StatusForbidden, "Only admins can do that."
	case errors.Is(err, service.ErrInvalidInput):
		status, msg = http.StatusBadRequest, validationMessage(err)
	default:
		s.logger.Error("api call failed", "path", r.URL.Path, "error", err)
	}

	data := s.newPageData(r, "Error", "")
	data.Error = msg
	if isHTMX(r) {
		w.Header().Set("HX-Retarget", "#alert")
		w.Header().Set("HX-Reswap", "innerHTML")
		if err := s.renderPartial(w, http.StatusOK, "partials/alert.html", data); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}
	if err := s.renderPage(w, status, data, "base.html", "pages/error.html", "partials/alert.html"); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

// validationMessage turns "invalid input: location is required" into
// "Location is required".
func validationMessage(err error) string {
	msg := err.Error()
	if _, after, ok := strings.Cut(msg, service.ErrInvalidInput.Error()+": "); ok {
		msg = after
	}
	if msg == "" {
		return msgGenericFailure
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	target := "/signin"
	if s.signedIn(r) {
		target = "/dashboard"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) signedIn(r *http.Request) bool {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	sess, err := s.auth.Session(r.Context(), c.Value)
	return err == nil && sess != nil
}

func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	data := s.newPageData(r, "Sign In", "")
	if r.URL.Query().Get("registered") == "1" {
		data.Notice = "Account created. Please sign in."
	}
	s.showAuthPage(w, http.StatusOK, data, "pages/signin.html")
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	data := s.newPageData(r, "Sign In", "")
	data.Data = map[string]string{"Email": email}
	if email == "" || password == "" {
		data.Error = "Email and password are required."
		s.showAuthPage(w, http.StatusBadRequest, data, "pages/signin.html")
		return
	}

	sess, err := s.auth.SignIn(r.Context(), email, password)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			data.Error = api.UserMessage(err, msgInvalidCredentials)
		} else {
			data.Error = msgGenericFailure
			s.logger.Error("sign in failed", "email", email, "error", err)
		}
		s.showAuthPage(w, http.StatusUnauthorized, data, "pages/signin.html")
		return
	}

	s.setSessionCookie(w, sess.ID, sess.ExpiresAt)
	redirect(w, r, "/dashboard")
}

// signUpRoles are the roles a user can be given from the dashboard. Admins
// are provisioned on the API side.
var signUpRoles = map[string]bool{"Agent": true, "User": true}

var errRole = errors.New("role must be Agent or User")

func (s *Server) handleSignUpPage(w http.ResponseWriter, r *http.Request) {
	s.showAuthPage(w, http.StatusOK, s.newPageData(r, "Sign Up", ""), "pages/signup.html")
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	u := api.NewUser{
		FirstName: strings.TrimSpace(r.FormValue("first_name")),
		LastName:  strings.TrimSpace(r.FormValue("last_name")),
		Email:     strings.TrimSpace(r.FormValue("email")),
		Password:  r.FormValue("password"),
		Role:      r.FormValue("role"),
	}

	data := s.newPageData(r, "Sign Up", "")
	data.Data = u
	if u.Role != "" && !signUpRoles[u.Role] {
		data.Error = "Role must be Agent or User."
		s.showAuthPage(w, http.StatusBadRequest, data, "pages/signup.html")
		return
	}

	if _, err := s.auth.SignUp(r.Context(), u); err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, service.ErrInvalidSignUp):
			status, data.Error = http.StatusBadRequest, "All fields are required."
		default:
			var apiErr *api.Error
			if errors.As(err, &apiErr) {
				status = http.StatusBadRequest
			}
			data.Error = api.UserMessage(err, msgGenericFailure)
			s.logger.Warn("sign up failed", "email", u.Email, "error", err)
		}
		s.showAuthPage(w, status, data, "pages/signup.html")
		return
	}

	redirect(w, r, "/signin?registered=1")
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if err := s.auth.SignOut(r.Context(), c.Value); err != nil {
			s.logger.Error("sign out failed", "error", err)
		}
	}
	s.clearSessionCookie(w)
	redirect(w, r, "/signin")
}

func (s *Server) showAuthPage(w http.ResponseWriter, status int, data pageData, page string) {
	if err := s.renderPage(w, status, data, "base.html", page, "partials/alert.html"); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func themeFrom(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil && c.Value == "dark" {
		return "dark"
	}
	return "light"
}

// handleToggleTheme flips the theme cookie and reloads the page it came from.
func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	next := "dark"
	if themeFrom(r) == "dark" {
		next = "light"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    next,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})

	if isHTMX(r) {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

// backTo returns the same-site path the request came from, or "/".
func backTo(r *http.Request) string {
	u, err := url.Parse(r.Referer())
	if err != nil || u.Host != r.Host || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "Page Not Found", "")
	if err := s.renderPage(w, http.StatusNotFound, data, "base.html", "pages/not_found.html", "partials/alert.html"); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}
