package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"cart-proxy/internal/model"
)

// HeaderName carries the session id for API clients that don't keep cookies.
// The middleware also echoes it on every response.
const HeaderName = "X-Cart-Session"

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name     string        // Default: "cart_session"
	Domain   string        // Empty = host-only cookie
	Secure   bool          // Set in production (HTTPS only)
	MaxAge   time.Duration // Default: DefaultTTL
	SameSite http.SameSite // Default: Lax
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.Name == "" {
		c.Name = "cart_session"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultTTL
	}
	if c.SameSite == http.SameSiteDefaultMode {
		c.SameSite = http.SameSiteLaxMode
	}
	return c
}

type contextKey string

const (
	sessionContextKey contextKey = "cart.session"
	idContextKey      contextKey = "cart.session_id"
)

// Middleware loads the visitor's CartSession into the request context and
// persists it, if anything changed, before the handler's first write and
// again when the handler returns.
//
// The id is taken from the cookie first, then the X-Cart-Session header. A
// new random id is issued when neither is present or the value is malformed.
func Middleware(store Store, cookie CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	cookie = cookie.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestSessionID(r, cookie.Name)
			if id == "" {
				id = NewID()
			}

			sess, err := store.Load(r.Context(), id)
			if err != nil {
				logger.Error("loading session failed",
					slog.String("error", err.Error()))
				model.WriteError(w, model.NewSessionUnavailableError(err))
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cookie.Name,
				Value:    id,
				Path:     "/",
				Domain:   cookie.Domain,
				MaxAge:   int(cookie.MaxAge.Seconds()),
				Secure:   cookie.Secure,
				HttpOnly: true,
				SameSite: cookie.SameSite,
			})
			w.Header().Set(HeaderName, id)

			persist := func() {
				if !sess.Dirty() {
					return
				}
				// The client may already be gone; the write must still land.
				if err := store.Save(context.WithoutCancel(r.Context()), id, sess); err != nil {
					logger.Error("saving session failed",
						slog.String("session_id", id),
						slog.String("error", err.Error()))
				}
			}

			sw := &savingWriter{ResponseWriter: w, persist: persist}
			next.ServeHTTP(sw, r.WithContext(WithSession(r.Context(), id, sess)))

			// Handlers that never wrote, or changed the session after writing.
			persist()
		})
	}
}

// savingWriter persists the session before the response status goes out, so
// a client that reacts to the response never reads a stale session.
type savingWriter struct {
	http.ResponseWriter
	persist func()
	saved   bool
}

func (w *savingWriter) beforeWrite() {
	if !w.saved {
		w.saved = true
		w.persist()
	}
}

func (w *savingWriter) WriteHeader(status int) {
	w.beforeWrite()
	w.ResponseWriter.WriteHeader(status)
}

func (w *savingWriter) Write(b []byte) (int, error) {
	w.beforeWrite()
	return w.ResponseWriter.Write(b)
}

func (w *savingWriter) Flush() {
	w.beforeWrite()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *savingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape of an issued session id.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func requestSessionID(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && ValidID(c.Value) {
		return c.Value
	}
	if h := r.Header.Get(HeaderName); ValidID(h) {
		return h
	}
	return ""
}

// WithSession stores the session and its id in ctx.
func WithSession(ctx context.Context, id string, s *CartSession) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, s)
	return context.WithValue(ctx, idContextKey, id)
}

// FromContext returns the request's CartSession, or nil outside the middleware.
func FromContext(ctx context.Context) *CartSession {
	s, _ := ctx.Value(sessionContextKey).(*CartSession)
	return s
}

// IDFromContext returns the request's session id, or "".
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(idContextKey).(string)
	return id
}
