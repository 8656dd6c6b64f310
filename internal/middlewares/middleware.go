package middlewares

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/grvbrk/intra_catalog/internal/auth"
	"github.com/grvbrk/intra_catalog/internal/logger"
	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/models"
	"github.com/grvbrk/intra_catalog/internal/store"
	"github.com/grvbrk/intra_catalog/internal/utils"
	"github.com/rs/zerolog"
)

type contextKey string

const AdminContextKey contextKey = "admin"

// UserLookup resolves the stored account behind a session.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type MiddlewareHandler struct {
	Logger         zerolog.Logger
	Sessions       auth.SessionProvider
	Users          UserLookup
	AllowedOrigins []string
}

// NewMiddlewareHandler builds the shared middleware. With a nil users lookup
// the session cookie alone decides admin access.
func NewMiddlewareHandler(log zerolog.Logger, sessions auth.SessionProvider, users UserLookup, allowedOrigins []string) *MiddlewareHandler {
	return &MiddlewareHandler{
		Logger:         log.With().Str("component", "middleware").Logger(),
		Sessions:       sessions,
		Users:          users,
		AllowedOrigins: allowedOrigins,
	}
}

// AuthenticateAdmin resolves the signed-in identity and stores it in the
// request context. Requests that fail the gate, or whose account is gone or
// no longer ADMIN, get 401.
func (mh *MiddlewareHandler) AuthenticateAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := mh.Sessions.CurrentIdentity(r)
		if err != nil {
			mh.Logger.Warn().Err(err).Msg("invalid admin session")
			utils.WriteJSON(w, http.StatusUnauthorized, utils.Envelope{"error": "Admin access required"})
			return
		}

		if !auth.Gate(identity) {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.Envelope{"error": "Admin access required"})
			return
		}

		if mh.Users != nil {
			user, err := mh.Users.GetUserByID(r.Context(), identity.ID)
			if errors.Is(err, store.ErrNotFound) || (err == nil && !user.IsAdmin()) {
				mh.Logger.Warn().Str("user_id", identity.ID.String()).Msg("session holder is not an admin")
				utils.WriteJSON(w, http.StatusUnauthorized, utils.Envelope{"error": "Admin access required"})
				return
			}
			if err != nil {
				mh.Logger.Error().Err(err).Msg("failed to look up admin")
				utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"error": "internal server error"})
				return
			}
			identity = user
		}

		ctx := context.WithValue(r.Context(), AdminContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (mh *MiddlewareHandler) Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && !mh.isOriginAllowed(origin) {
			mh.Logger.Warn().Str("origin", origin).Msg("origin not allowed")
			utils.WriteJSON(w, http.StatusForbidden, utils.Envelope{"error": "Origin not allowed"})
			return
		}

		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Expose-Headers", "Authorization, X-Request-Id")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (mh *MiddlewareHandler) RequestLogger(next http.Handler) http.Handler {
	return logger.RequestLogger(mh.Logger)(next)
}

func (mh *MiddlewareHandler) Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

func (mh *MiddlewareHandler) isOriginAllowed(origin string) bool {
	return slices.Contains(mh.AllowedOrigins, origin)
}

func GetAdminFromContext(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(AdminContextKey).(*models.User)
	return user, ok && user != nil
}
