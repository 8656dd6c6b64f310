package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/grvbrk/intra_catalog/internal/models"
	"github.com/grvbrk/intra_catalog/internal/store"
	"github.com/grvbrk/intra_catalog/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateSession = "intra_oauth_state"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type AdminOAuth interface {
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Callback(w http.ResponseWriter, r *http.Request)
}

type AdminOAuthConfig struct {
	ClientID     string
	ClientSecret string
	BackendURL   string
	FrontendURL  string
	// users signing in with one of these emails are created as ADMIN
	AdminEmails []string
}

type AdminGoogleOauth struct {
	Logger      zerolog.Logger
	Config      *oauth2.Config
	Store       *sessions.CookieStore
	Sessions    *AdminSessions
	UserStore   store.UserStore
	UserInfoURL string
	FrontendURL string
	AdminEmails []string
}

func NewAdminGoogleOauth(cfg AdminOAuthConfig, cookieStore *sessions.CookieStore, adminSessions *AdminSessions, userStore store.UserStore, logger zerolog.Logger) *AdminGoogleOauth {
	emails := make([]string, 0, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		emails = append(emails, strings.ToLower(e))
	}

	return &AdminGoogleOauth{
		Logger: logger.With().Str("component", "admin_oauth").Logger(),
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  fmt.Sprintf("%s/auth/admin/google/callback", cfg.BackendURL),
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.profile", "https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		},
		Store:       cookieStore,
		Sessions:    adminSessions,
		UserStore:   userStore,
		UserInfoURL: googleUserInfoURL,
		FrontendURL: cfg.FrontendURL,
		AdminEmails: emails,
	}
}

func (g *AdminGoogleOauth) Login(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		g.Logger.Error().Err(err).Msg("failed to generate oauth state")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"error": "Internal Server Error"})
		return
	}

	session, _ := g.Store.Get(r, oauthStateSession)
	session.Values["state"] = state
	session.Options.MaxAge = 600
	if err := session.Save(r, w); err != nil {
		g.Logger.Error().Err(err).Msg("failed to save oauth state")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"error": "Internal Server Error"})
		return
	}

	url := g.Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	GoogleID string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Image    string `json:"picture"`
}

func (g *AdminGoogleOauth) Callback(w http.ResponseWriter, r *http.Request) {
	if !g.checkState(w, r) {
		g.Logger.Warn().Msg("oauth state mismatch")
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"error": "invalid oauth state"})
		return
	}

	ctx := r.Context()
	token, err := g.Config.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		g.Logger.Error().Err(err).Msg("error exchanging admin token")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"error": "Internal Server Error"})
		return
	}

	info, err := g.fetchUserInfo(ctx, token)
	if err != nil {
		g.Logger.Error().Err(err).Msg("error getting admin info")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"error": "Internal Server Error"})
		return
	}

	user, err := g.findOrCreateUser(ctx, info)
	if err != nil {
		g.Logger.Error().Err(err).Msg("error resolving admin user")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"error": "Internal Server Error"})
		return
	}

	if !user.IsAdmin() {
		g.Logger.Warn().Str("email", user.Email).Msg("user not admin")
		utils.WriteJSON(w, http.StatusUnauthorized, utils.Envelope{"error": "Unauthorized"})
		return
	}

	if err := g.Sessions.SignIn(w, r, user); err != nil {
		g.Logger.Error().Err(err).Msg("error saving admin session")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"error": "Internal Server Error"})
		return
	}

	g.Logger.Info().Str("admin_id", user.ID.String()).Msg("admin signed in")
	http.Redirect(w, r, g.FrontendURL+"/dashboard", http.StatusSeeOther)
}

func (g *AdminGoogleOauth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := g.Sessions.SignOut(w, r); err != nil {
		g.Logger.Error().Err(err).Msg("error clearing admin session")
	}
	http.Redirect(w, r, g.FrontendURL, http.StatusSeeOther)
}

func (g *AdminGoogleOauth) checkState(w http.ResponseWriter, r *http.Request) bool {
	session, err := g.Store.Get(r, oauthStateSession)
	if err != nil || session.IsNew {
		return false
	}
	want, _ := session.Values["state"].(string)

	delete(session.Values, "state")
	session.Options.MaxAge = -1
	_ = session.Save(r, w)

	return want != "" && want == r.URL.Query().Get("state")
}

func (g *AdminGoogleOauth) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := g.Config.Client(ctx, token)
	resp, err := client.Get(g.UserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %s", resp.Status)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}
	if info.GoogleID == "" {
		return nil, errors.New("user info carries no id")
	}
	return &info, nil
}

func (g *AdminGoogleOauth) findOrCreateUser(ctx context.Context, info *googleUserInfo) (*models.User, error) {
	user, err := g.UserStore.GetUserByGoogleID(ctx, info.GoogleID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	role := models.RoleUser
	if slices.Contains(g.AdminEmails, strings.ToLower(info.Email)) {
		role = models.RoleAdmin
	}

	user = &models.User{
		GoogleID: info.GoogleID,
		Name:     info.Name,
		Email:    info.Email,
		ImageSrc: info.Image,
		Role:     role,
	}
	if err := g.UserStore.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	g.Logger.Info().Str("email", user.Email).Str("role", role).Msg("user created")
	return user, nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
