package auth

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/grvbrk/intra_catalog/internal/models"
	"github.com/rs/zerolog"
)

const adminSessionName = "intra_admin_session"

type IdentityEventKind int

const (
	SignedIn IdentityEventKind = iota
	SignedOut
)

type IdentityEvent struct {
	Kind   IdentityEventKind
	UserID uuid.UUID
}

// SessionProvider is the boundary the admin surface reads identity through.
// CurrentIdentity returns nil, nil when nobody is signed in.
type SessionProvider interface {
	CurrentIdentity(r *http.Request) (*models.User, error)
	Subscribe(fn func(IdentityEvent)) (unsubscribe func())
	SignOut(w http.ResponseWriter, r *http.Request) error
}

// Gate is the only authorization check on the admin surface.
func Gate(identity *models.User) bool {
	return identity != nil
}

type SessionOptions struct {
	AuthKey       []byte
	EncryptionKey []byte
	Production    bool
	Domain        string
}

func NewCookieStore(opts SessionOptions) *sessions.CookieStore {
	authKey, encKey := opts.AuthKey, opts.EncryptionKey
	if len(authKey) == 0 {
		authKey = securecookie.GenerateRandomKey(64)
	}
	if len(encKey) == 0 {
		encKey = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewCookieStore(authKey, encKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
	}

	if opts.Production {
		store.Options.Secure = true
		store.Options.SameSite = http.SameSiteNoneMode
		store.Options.Domain = opts.Domain
	} else {
		store.Options.Secure = false
		store.Options.SameSite = http.SameSiteLaxMode
	}
	return store
}

// AdminSessions keeps the signed-in admin in an encrypted cookie and tells
// subscribers when someone signs in or out.
type AdminSessions struct {
	store  *sessions.CookieStore
	logger zerolog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(IdentityEvent)
}

func NewAdminSessions(store *sessions.CookieStore, logger zerolog.Logger) *AdminSessions {
	return &AdminSessions{
		store:  store,
		logger: logger.With().Str("component", "admin_sessions").Logger(),
		subs:   make(map[int]func(IdentityEvent)),
	}
}

func (s *AdminSessions) CurrentIdentity(r *http.Request) (*models.User, error) {
	session, err := s.store.Get(r, adminSessionName)
	if err != nil {
		// undecodable cookies (rotated keys, tampering) count as signed out
		s.logger.Debug().Err(err).Msg("failed to decode admin session")
		return nil, nil
	}
	if session.IsNew {
		return nil, nil
	}

	adminEmail, emailOk := session.Values["admin_email"].(string)
	adminIDStr, idOk := session.Values["admin_id"].(string)
	if !emailOk || !idOk || adminEmail == "" || adminIDStr == "" {
		return nil, nil
	}

	adminID, err := uuid.Parse(adminIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid admin id in session: %w", err)
	}

	name, _ := session.Values["admin_name"].(string)
	image, _ := session.Values["admin_image"].(string)

	return &models.User{
		ID:       adminID,
		Email:    adminEmail,
		Name:     name,
		ImageSrc: image,
		Role:     models.RoleAdmin,
	}, nil
}

func (s *AdminSessions) SignIn(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session, _ := s.store.Get(r, adminSessionName)
	session.Values["admin_email"] = user.Email
	session.Values["admin_id"] = user.ID.String()
	session.Values["admin_name"] = user.Name
	session.Values["admin_image"] = user.ImageSrc

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save admin session: %w", err)
	}

	s.publish(IdentityEvent{Kind: SignedIn, UserID: user.ID})
	return nil
}

func (s *AdminSessions) SignOut(w http.ResponseWriter, r *http.Request) error {
	identity, _ := s.CurrentIdentity(r)

	session, _ := s.store.Get(r, adminSessionName)
	for key := range session.Values {
		delete(session.Values, key)
	}
	session.Options.MaxAge = -1

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear admin session: %w", err)
	}

	if identity != nil {
		s.publish(IdentityEvent{Kind: SignedOut, UserID: identity.ID})
	}
	return nil
}

func (s *AdminSessions) Subscribe(fn func(IdentityEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *AdminSessions) publish(ev IdentityEvent) {
	s.mu.Lock()
	subs := make([]func(IdentityEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
