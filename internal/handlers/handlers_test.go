package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/auth"
	"github.com/grvbrk/intra_catalog/internal/media"
	"github.com/grvbrk/intra_catalog/internal/middlewares"
	"github.com/grvbrk/intra_catalog/internal/models"
	"github.com/grvbrk/intra_catalog/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	name, contentType string
	err               error
}

func (f *fakeUploader) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	f.name, f.contentType = filename, contentType
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/vehicles/" + filename, nil
}

type testEnv struct {
	router     *chi.Mux
	videos     *store.MemoryTable[models.Video, models.VideoDraft]
	vehicles   *store.MemoryTable[models.Vehicle, models.VehicleDraft]
	users      *store.MemoryUserStore
	workspaces *AdminWorkspaces
	uploader   *fakeUploader
	admin      *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	validate, err := models.NewValidator()
	require.NoError(t, err)

	env := &testEnv{
		videos:   store.NewMemoryVideoStore(),
		vehicles: store.NewMemoryVehicleStore(),
		users:    store.NewMemoryUserStore(),
		uploader: &fakeUploader{},
	}

	env.admin = &models.User{GoogleID: "g-admin", Email: "ops@example.com", Role: models.RoleAdmin}
	require.NoError(t, env.users.CreateUser(context.Background(), env.admin))

	log := zerolog.Nop()
	env.workspaces = NewAdminWorkspaces(env.videos, env.vehicles, validate, log)
	catalogHandler := NewCatalogHandler(env.videos, env.vehicles, log)
	adminHandler := NewAdminHandler(env.workspaces, env.users, nil, env.uploader, log)

	r := chi.NewRouter()
	r.Route("/api/v1/public", func(r chi.Router) {
		r.Get("/videos", catalogHandler.HandlerGetVideos)
		r.Get("/vehicles", catalogHandler.HandlerGetVehicles)
		r.Get("/applications", catalogHandler.HandlerGetApplications)
	})
	r.Route("/admin", func(r chi.Router) {
		// the X-Admin header picks the signed-in identity
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				admin := env.admin
				if id := req.Header.Get("X-Admin"); id != "" {
					admin = &models.User{ID: uuid.MustParse(id), Role: models.RoleAdmin}
				}
				ctx := context.WithValue(req.Context(), middlewares.AdminContextKey, admin)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		r.Get("/me", adminHandler.HandlerMe)
		r.Route("/videos", func(r chi.Router) {
			r.Get("/", adminHandler.Videos.HandlerList)
			r.Post("/", adminHandler.Videos.HandlerSubmit)
			r.Get("/state", adminHandler.Videos.HandlerState)
			r.Post("/new", adminHandler.Videos.HandlerStartCreate)
			r.Post("/cancel", adminHandler.Videos.HandlerCancel)
			r.Post("/{id}/edit", adminHandler.Videos.HandlerStartEdit)
			r.Delete("/{id}", adminHandler.Videos.HandlerDelete)
		})
		r.Route("/vehicles", func(r chi.Router) {
			r.Post("/", adminHandler.Vehicles.HandlerSubmit)
			r.Post("/images", adminHandler.HandlerUploadVehicleImage)
		})
		r.Get("/users", adminHandler.HandlerGetUsers)
		r.Put("/users/{id}/role", adminHandler.HandlerSetUserRole)
	})
	env.router = r
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) seedVideo(t *testing.T, d models.VideoDraft) models.Video {
	t.Helper()
	v, err := env.videos.Insert(context.Background(), d)
	require.NoError(t, err)
	return v
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func validDraft(title string) models.VideoDraft {
	return models.VideoDraft{
		Title:        title,
		VideoURL:     "https://youtu.be/" + strings.ReplaceAll(title, " ", ""),
		VehicleModel: "Intra V30",
		Region:       "Karnataka",
		Application:  "logistics",
	}
}

type listingResponse struct {
	Data struct {
		Videos []struct {
			ID       uuid.UUID `json:"id"`
			Title    string    `json:"title"`
			EmbedURL string    `json:"embed_url"`
			IsShort  bool      `json:"is_short"`
		} `json:"videos"`
		Options   map[string][]string `json:"options"`
		Selection map[string]string   `json:"selection"`
		Total     int                 `json:"total"`
		Visible   int                 `json:"visible"`
	} `json:"data"`
}

func TestPublicVideosFilterAndOptions(t *testing.T) {
	env := newTestEnv(t)
	env.seedVideo(t, models.VideoDraft{Title: "a", VideoURL: "https://www.youtube.com/watch?v=aaa", VehicleModel: "V30", Region: "Goa", Application: "Logistics"})
	env.seedVideo(t, models.VideoDraft{Title: "b", VideoURL: "https://youtube.com/shorts/bbb", VehicleModel: "V50", Region: "Goa", Application: "milk"})
	env.seedVideo(t, models.VideoDraft{Title: "c", VideoURL: "https://vimeo.com/1", VehicleModel: "V30", Region: "Kerala"})

	rec := env.do(t, http.MethodGet, "/api/v1/public/videos?model=V30&region=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[listingResponse](t, rec)
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Visible)
	require.Len(t, resp.Data.Videos, 2)
	// newest first
	assert.Equal(t, "c", resp.Data.Videos[0].Title)
	assert.Equal(t, "a", resp.Data.Videos[1].Title)
	assert.Equal(t, "https://vimeo.com/1", resp.Data.Videos[0].EmbedURL)
	assert.Equal(t, "https://www.youtube.com/embed/aaa", resp.Data.Videos[1].EmbedURL)

	assert.Equal(t, []string{"V30", "V50"}, resp.Data.Options["model"])
	assert.Equal(t, []string{"Kerala", "Goa"}, resp.Data.Options["region"])
	assert.Equal(t, []string{"milk", "logistics"}, resp.Data.Options["application"])
	assert.Equal(t, "all", resp.Data.Selection["application"])
}

func TestPublicVideosShortsAndApplicationSlug(t *testing.T) {
	env := newTestEnv(t)
	env.seedVideo(t, models.VideoDraft{Title: "short", VideoURL: "https://youtube.com/shorts/bbb", VehicleModel: "V50", Region: "Goa", Application: "Logistics"})

	resp := decode[listingResponse](t, env.do(t, http.MethodGet, "/api/v1/public/videos?application=logistics", nil))
	require.Len(t, resp.Data.Videos, 1)
	assert.True(t, resp.Data.Videos[0].IsShort)
	assert.Equal(t, "https://www.youtube.com/embed/bbb", resp.Data.Videos[0].EmbedURL)
}

type failingLister[R any] struct{}

func (failingLister[R]) List(context.Context) ([]R, error) {
	return nil, errors.New("connection refused")
}

func TestPublicVideosStoreFailure(t *testing.T) {
	h := NewCatalogHandler(failingLister[models.Video]{}, failingLister[models.Vehicle]{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandlerGetVideos(rec, httptest.NewRequest(http.MethodGet, "/api/v1/public/videos", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.Empty(t, h.Videos.Snapshot())
}

func TestPublicApplications(t *testing.T) {
	env := newTestEnv(t)
	resp := decode[struct {
		Data []string `json:"data"`
	}](t, env.do(t, http.MethodGet, "/api/v1/public/applications", nil))

	assert.Len(t, resp.Data, len(models.Applications))
	assert.Contains(t, resp.Data, "refrigerated-vans")
}

func TestAdminSubmitValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/admin/videos/", models.VideoDraft{Title: "  ", Application: "spaceships"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[struct {
		Fields []struct {
			Field string `json:"field"`
			Rule  string `json:"rule"`
		} `json:"fields"`
	}](t, rec)
	fields := map[string]string{}
	for _, f := range resp.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, "notblank", fields["title"])
	assert.Equal(t, "application", fields["application"])

	videos, _ := env.videos.List(context.Background())
	assert.Empty(t, videos)
}

func TestAdminSubmitRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/admin/videos/", map[string]any{"title": "x", "views": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stateResponse struct {
	Data struct {
		Mode       string            `json:"mode"`
		TargetID   *uuid.UUID        `json:"target_id"`
		Submitting bool              `json:"submitting"`
		Draft      models.VideoDraft `json:"draft"`
	} `json:"data"`
}

func TestAdminCreateEditFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/admin/videos/", validDraft("Launch Day"))
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[struct {
		Data models.Video `json:"data"`
	}](t, rec).Data
	assert.Equal(t, "Launch Day", created.Title)

	rec = env.do(t, http.MethodPost, "/admin/videos/"+created.ID.String()+"/edit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[stateResponse](t, rec)
	assert.Equal(t, "edit", state.Data.Mode)
	require.NotNil(t, state.Data.TargetID)
	assert.Equal(t, created.ID, *state.Data.TargetID)
	assert.Equal(t, "Launch Day", state.Data.Draft.Title)

	edited := validDraft("Launch Day")
	edited.Region = "Kerala"
	rec = env.do(t, http.MethodPost, "/admin/videos/", edited)
	require.Equal(t, http.StatusOK, rec.Code)

	videos, _ := env.videos.List(context.Background())
	require.Len(t, videos, 1)
	assert.Equal(t, created.ID, videos[0].ID)
	assert.Equal(t, "Kerala", videos[0].Region)

	state = decode[stateResponse](t, env.do(t, http.MethodGet, "/admin/videos/state", nil))
	assert.Equal(t, "create", state.Data.Mode)
	assert.Nil(t, state.Data.TargetID)
}

func TestAdminCancelAndStartCreate(t *testing.T) {
	env := newTestEnv(t)
	v := env.seedVideo(t, validDraft("one"))

	env.do(t, http.MethodPost, "/admin/videos/"+v.ID.String()+"/edit", nil)
	state := decode[stateResponse](t, env.do(t, http.MethodPost, "/admin/videos/cancel", nil))
	assert.Equal(t, "create", state.Data.Mode)

	env.do(t, http.MethodPost, "/admin/videos/"+v.ID.String()+"/edit", nil)
	state = decode[stateResponse](t, env.do(t, http.MethodPost, "/admin/videos/new", nil))
	assert.Equal(t, "create", state.Data.Mode)
	assert.Empty(t, state.Data.Draft.Title)
}

func TestAdminStartEditUnknownRecord(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/admin/videos/"+uuid.NewString()+"/edit", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/admin/videos/not-a-uuid/edit", nil).Code)
}

func TestAdminDelete(t *testing.T) {
	env := newTestEnv(t)
	v := env.seedVideo(t, validDraft("doomed"))

	rec := env.do(t, http.MethodDelete, "/admin/videos/"+v.ID.String(), nil)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
	videos, _ := env.videos.List(context.Background())
	assert.Len(t, videos, 1)

	env.do(t, http.MethodPost, "/admin/videos/"+v.ID.String()+"/edit", nil)

	rec = env.do(t, http.MethodDelete, "/admin/videos/"+v.ID.String()+"?confirm=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	videos, _ = env.videos.List(context.Background())
	assert.Empty(t, videos)

	state := decode[stateResponse](t, env.do(t, http.MethodGet, "/admin/videos/state", nil))
	assert.Equal(t, "create", state.Data.Mode)

	rec = env.do(t, http.MethodDelete, "/admin/videos/"+v.ID.String()+"?confirm=true", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminWorkspacesAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	v := env.seedVideo(t, validDraft("shared"))
	other := uuid.NewString()

	env.do(t, http.MethodPost, "/admin/videos/"+v.ID.String()+"/edit", nil)

	mine := decode[stateResponse](t, env.do(t, http.MethodGet, "/admin/videos/state", nil))
	theirs := decode[stateResponse](t, env.do(t, http.MethodGet, "/admin/videos/state", nil, "X-Admin", other))

	assert.Equal(t, "edit", mine.Data.Mode)
	assert.Equal(t, "create", theirs.Data.Mode)
	assert.Equal(t, 2, env.workspaces.Len())
}

func TestAdminWorkspacesDroppedOnSignOut(t *testing.T) {
	env := newTestEnv(t)
	sessions := auth.NewAdminSessions(auth.NewCookieStore(auth.SessionOptions{}), zerolog.Nop())
	detach := env.workspaces.Attach(sessions)
	defer detach()

	signIn := httptest.NewRecorder()
	require.NoError(t, sessions.SignIn(signIn, httptest.NewRequest(http.MethodGet, "/", nil), env.admin))
	env.workspaces.For(env.admin.ID)
	require.Equal(t, 1, env.workspaces.Len())

	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	for _, c := range signIn.Result().Cookies() {
		req.AddCookie(c)
	}
	require.NoError(t, sessions.SignOut(httptest.NewRecorder(), req))
	assert.Zero(t, env.workspaces.Len())
}

func TestAdminVehicleSubmit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/admin/vehicles/", models.VehicleDraft{Name: "Intra V50"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/vehicles/", models.VehicleDraft{
		Image: "https://cdn.example.com/v50.png", Name: "Intra V50", SpecGVW: "3490 kg", SpecPayload: "1700 kg", SpecEngine: "1497 cc",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	vehicles, _ := env.vehicles.List(context.Background())
	require.Len(t, vehicles, 1)
	assert.Equal(t, "Intra V50", vehicles[0].Name)
}

func TestAdminMe(t *testing.T) {
	env := newTestEnv(t)
	resp := decode[struct {
		Data map[string]any `json:"data"`
	}](t, env.do(t, http.MethodGet, "/admin/me", nil))

	assert.Equal(t, "ops@example.com", resp.Data["email"])
	assert.Equal(t, models.RoleAdmin, resp.Data["role"])
}

func TestAdminUserRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	viewer := &models.User{GoogleID: "g-viewer", Email: "viewer@example.com", Role: models.RoleUser}
	require.NoError(t, env.users.CreateUser(ctx, viewer))

	rec := env.do(t, http.MethodPut, "/admin/users/"+viewer.ID.String()+"/role", map[string]string{"role": "ADMIN"})
	require.Equal(t, http.StatusOK, rec.Code)
	got, _ := env.users.GetUserByID(ctx, viewer.ID)
	assert.True(t, got.IsAdmin())

	rec = env.do(t, http.MethodPut, "/admin/users/"+viewer.ID.String()+"/role", map[string]string{"role": "OWNER"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPut, "/admin/users/"+env.admin.ID.String()+"/role", map[string]string{"role": "USER"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/admin/users/"+uuid.NewString()+"/role", map[string]string{"role": "USER"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp := decode[struct {
		Data []models.User `json:"data"`
	}](t, env.do(t, http.MethodGet, "/admin/users", nil))
	assert.Len(t, resp.Data, 2)
}

func multipartImage(t *testing.T, filename, contentType string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("image-bytes"))
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestAdminUploadVehicleImage(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartImage(t, "v50.png", "image/png")
	req := httptest.NewRequest(http.MethodPost, "/admin/vehicles/images", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "v50.png", env.uploader.name)
	assert.Equal(t, "image/png", env.uploader.contentType)
	assert.Contains(t, rec.Body.String(), "https://cdn.example.com/vehicles/v50.png")

	env.uploader.err = media.ErrUnsupportedType
	body, ct = multipartImage(t, "notes.txt", "text/plain")
	req = httptest.NewRequest(http.MethodPost, "/admin/vehicles/images", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestAdminUploadWithoutBucket(t *testing.T) {
	h := &AdminHandler{}
	rec := httptest.NewRecorder()
	h.HandlerUploadVehicleImage(rec, httptest.NewRequest(http.MethodPost, "/admin/vehicles/images", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type flakyVideoTable struct {
	*store.MemoryTable[models.Video, models.VideoDraft]
	fail atomic.Bool
}

func (f *flakyVideoTable) List(ctx context.Context) ([]models.Video, error) {
	if f.fail.Load() {
		return nil, errors.New("connection reset")
	}
	return f.MemoryTable.List(ctx)
}

func TestAdminStateReportsSnapshotOrigin(t *testing.T) {
	validate, err := models.NewValidator()
	require.NoError(t, err)

	videos := &flakyVideoTable{MemoryTable: store.NewMemoryVideoStore()}
	_, err = videos.Insert(context.Background(), validDraft("Launch Day"))
	require.NoError(t, err)

	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	ws := NewAdminWorkspaces(videos, store.NewMemoryVehicleStore(), validate, zerolog.Nop())
	h := NewAdminHandler(ws, store.NewMemoryUserStore(), nil, nil, zerolog.Nop())

	call := func(handler http.HandlerFunc) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/videos/", nil)
		req = req.WithContext(context.WithValue(req.Context(), middlewares.AdminContextKey, admin))
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	type origin struct {
		LoadedAt  time.Time `json:"loaded_at"`
		LastError *string   `json:"last_error"`
	}

	before := decode[origin](t, call(h.Videos.HandlerState))
	assert.True(t, before.LoadedAt.IsZero())
	assert.Nil(t, before.LastError)

	rec := call(h.Videos.HandlerList)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[origin](t, rec)
	assert.False(t, listed.LoadedAt.IsZero())

	videos.fail.Store(true)
	assert.Equal(t, http.StatusBadGateway, call(h.Videos.HandlerList).Code)

	after := decode[origin](t, call(h.Videos.HandlerState))
	require.NotNil(t, after.LastError)
	assert.Contains(t, *after.LastError, "connection reset")
	assert.False(t, after.LoadedAt.Before(listed.LoadedAt))
}
