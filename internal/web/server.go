package web

import (
	"bufio"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/vbonduro/ecosort/internal/live"
	"github.com/vbonduro/ecosort/internal/service"
)

type Server struct {
	auth         *service.AuthService
	resources    *service.ResourceService
	hub          *live.Hub
	templates    embed.FS
	mux          *http.ServeMux
	tmplFuncs    template.FuncMap
	cookieSecure bool
	logger       *slog.Logger
}

type Options struct {
	Auth      *service.AuthService
	Resources *service.ResourceService
	Hub       *live.Hub
	Templates embed.FS
	// CookieSecure marks the session cookie Secure; enable behind TLS.
	CookieSecure bool
	Logger       *slog.Logger
}

func NewServer(opts Options) *Server {
	s := &Server{
		auth:         opts.Auth,
		resources:    opts.Resources,
		hub:          opts.Hub,
		templates:    opts.Templates,
		mux:          http.NewServeMux(),
		cookieSecure: opts.CookieSecure,
		logger:       opts.Logger,
		tmplFuncs: template.FuncMap{
			"wasteBadge":   wasteBadge,
			"upper":        strings.ToUpper,
			"passwordHint": passwordHint,
			"formatTime":   formatTime,
			"litres":       litres,
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /signin", s.handleSignInPage)
	s.mux.HandleFunc("POST /signin", s.handleSignIn)
	s.mux.HandleFunc("GET /signup", s.handleSignUpPage)
	s.mux.HandleFunc("POST /signup", s.handleSignUp)
	s.mux.HandleFunc("POST /signout", s.handleSignOut)
	s.mux.HandleFunc("POST /theme", s.handleToggleTheme)

	s.mux.Handle("GET /dashboard", s.requireSession(s.handleDashboard))

	s.mux.Handle("GET /waste-table", s.requireSession(s.handleWasteTable))
	s.mux.Handle("GET /waste/live", s.requireSession(s.handleWasteLive))
	s.mux.Handle("GET /waste/live/ws", s.requireSession(s.handleWasteLiveWS))

	s.mux.Handle("GET /user-table", s.requireSession(s.handleUserTable))
	s.mux.Handle("POST /users", s.requireSession(s.handleCreateUser))
	s.mux.Handle("DELETE /users/{id}", s.requireSession(s.handleDeleteUser))

	s.mux.Handle("GET /smartbin-table", s.requireSession(s.handleSmartBinTable))
	s.mux.Handle("POST /smartbins", s.requireSession(s.handleCreateSmartBin))
	s.mux.Handle("DELETE /smartbins/{id}", s.requireSession(s.handleDeleteSmartBin))
	s.mux.Handle("POST /smartbins/{id}/cover", s.requireSession(s.handleToggleCover))

	s.mux.Handle("GET /wastebin-table", s.requireSession(s.handleWasteBinTable))
	s.mux.Handle("POST /wastebins", s.requireSession(s.handleCreateWasteBin))
	s.mux.Handle("DELETE /wastebins/{id}", s.requireSession(s.handleDeleteWasteBin))

	s.mux.Handle("GET /wastebot-table", s.requireSession(s.handleWasteBotTable))
	s.mux.Handle("POST /wastebots", s.requireSession(s.handleCreateWasteBot))
	s.mux.Handle("DELETE /wastebots/{id}", s.requireSession(s.handleDeleteWasteBot))
	s.mux.Handle("POST /wastebots/{id}/status", s.requireSession(s.handleToggleStatus))

	s.mux.HandleFunc("/", s.handleNotFound)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; "+
				"font-src https://fonts.gstatic.com; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
// Flush and Hijack keep SSE streaming and the websocket upgrade working
// through the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:        addr,
		Handler:     s,
		ReadTimeout: 60 * time.Second,
		// No WriteTimeout: the live endpoints hold their response open.
		IdleTimeout: 120 * time.Second,
		// Request contexts end with ctx so long-lived streams close on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial executes the template defined in file, which must be named
// after the file's basename without extension (partials/user_table.html
// defines "user_table"). deps are parsed alongside for nested templates.
func (s *Server) renderPartial(w http.ResponseWriter, status int, file string, data any, deps ...string) error {
	tmpl, err := s.parsePartial(file, deps...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, partialName(file), data)
}

func (s *Server) parsePartial(file string, deps ...string) (*template.Template, error) {
	return template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, append([]string{file}, deps...)...)
}

func partialName(file string) string {
	return strings.TrimSuffix(path.Base(file), path.Ext(file))
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect sends the browser to target: HX-Redirect for HTMX requests, a 303
// otherwise.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
