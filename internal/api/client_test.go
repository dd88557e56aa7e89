package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"alerta-vecinal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession — хранилище сессии в памяти для тестов клиента.
type fakeSession struct {
	mu      sync.Mutex
	token   string
	logouts int
}

func (s *fakeSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) Logout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.token != ""
	s.token = ""
	s.logouts++
	return had
}

func coordPtr(v float64) *float64 { return &v }

func newTestClient(t *testing.T, handler http.Handler, token string) (*Client, *fakeSession) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	session := &fakeSession{token: token}
	return NewClient(srv.URL, 5*time.Second, session), session
}

func TestAuthorizedRequestCarriesFreshToken(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})
	client, session := newTestClient(t, handler, "first")

	_, err := client.Alerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Token first", gotAuth)

	// Токен читается в момент отправки, а не при создании клиента
	session.mu.Lock()
	session.token = "second"
	session.mu.Unlock()

	_, err = client.Alerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Token second", gotAuth)
}

func TestPublicAlertFetchSkipsToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 5, "title": "Choque", "category": "traffic_accident", "likes": 0, "dislikes": 0, "comment_count": 0}`))
	})
	client, _ := newTestClient(t, handler, "present-but-unused")

	alert, err := client.Alert(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), alert.ID)
	assert.Equal(t, "Choque", alert.Title)
}

func TestExpiredTokenForcesSingleLogout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Invalid token."}`))
	})
	client, session := newTestClient(t, handler, "stale")

	var navigations int
	client.OnForcedLogout(func() { navigations++ })

	_, err := client.Comments(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, session.logouts)
	assert.Equal(t, 1, navigations)

	// Второй 401 уже без сессии: уборка и навигация не повторяются
	_, err = client.MyAlerts(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, navigations)
}

func TestUnauthorizedWithoutTokenIsNotForcedLogout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	client, session := newTestClient(t, handler, "")

	var navigations int
	client.OnForcedLogout(func() { navigations++ })

	_, err := client.Alert(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 0, session.logouts)
	assert.Equal(t, 0, navigations)
}

func TestErrorDetailComesFromServerBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "El título es obligatorio"}`))
	})
	client, _ := newTestClient(t, handler, "token")

	_, err := client.CreateAlert(context.Background(), AlertForm{Title: "x"})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "El título es obligatorio", apiErr.Detail)
}

func TestCreateAlertWithoutImageSendsJSON(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/alerts/", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 10, "title": "Bache enorme", "category": "road_hazard", "likes": 0, "dislikes": 0, "comment_count": 0}`))
	})
	client, _ := newTestClient(t, handler, "token")

	alert, err := client.CreateAlert(context.Background(), AlertForm{
		Title:       "Bache enorme",
		Description: "En el carril derecho",
		Category:    models.CategoryRoadHazard,
		Latitude:    coordPtr(19.432608),
		Longitude:   coordPtr(-99.133209),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), alert.ID)
}

func TestCreateAlertWithImageSendsMultipart(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "Bache enorme", r.FormValue("title"))
		assert.Equal(t, "19.432608", r.FormValue("latitude"))
		assert.Equal(t, "-99.133209", r.FormValue("longitude"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "pothole.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 11, "title": "Bache enorme", "category": "road_hazard", "image": "/media/pothole.jpg", "likes": 0, "dislikes": 0, "comment_count": 0}`))
	})
	client, _ := newTestClient(t, handler, "token")

	alert, err := client.CreateAlert(context.Background(), AlertForm{
		Title:       "Bache enorme",
		Description: "En el carril derecho",
		Category:    models.CategoryRoadHazard,
		Latitude:    coordPtr(19.432608),
		Longitude:   coordPtr(-99.133209),
		Image: &ImageFile{
			Name:        "pothole.jpg",
			ContentType: "image/jpeg",
			Data:        []byte("fake-jpeg-bytes"),
		},
	})
	require.NoError(t, err)
	assert.True(t, alert.HasImage())
}

func TestNotifyLogoutUsesExplicitToken(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/auth/logout/", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	// Локальная сессия уже очищена, токен передаётся явно
	client, _ := newTestClient(t, handler, "")

	require.NoError(t, client.NotifyLogout(context.Background(), "departing-token"))
	assert.Equal(t, "Token departing-token", gotAuth)
}

func TestReactSendsReactionType(t *testing.T) {
	var body []byte
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		assert.Equal(t, "/alerts/3/react/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 3, "title": "Choque", "category": "traffic_accident", "likes": 1, "dislikes": 0, "user_reaction": "like", "comment_count": 0}`))
	})
	client, _ := newTestClient(t, handler, "token")

	alert, err := client.React(context.Background(), 3, models.ReactionLike)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reaction_type": "like"}`, string(body))
	assert.Equal(t, models.ReactionLike, alert.UserReaction)
}
