package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alerta-vecinal/internal/api"
	"alerta-vecinal/internal/mapview"
	"alerta-vecinal/internal/models"
	"alerta-vecinal/internal/refresh"
	"alerta-vecinal/internal/session"
	"alerta-vecinal/internal/toast"
	"alerta-vecinal/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlertTestRouter(t *testing.T, upstream http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Init()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	store.SetSession(&models.User{ID: 7, Username: "maria"}, "remote-token")

	client := api.NewClient(srv.URL, 2*time.Second, store)
	renderer := mapview.NewRenderer(func(mapview.Container) (mapview.Widget, error) {
		return &noopWidget{}, nil
	}, mapview.Options{DefaultZoom: 13})
	poller := refresh.NewPoller(time.Hour, func(ctx context.Context) ([]models.Alert, error) {
		return nil, nil
	}, renderer)

	h := NewAlertHandler(client, store, renderer, poller, toast.NewNotifier(), 5<<20)

	router := gin.New()
	router.POST("/alerts", h.CreateAlert)
	return router
}

// Алерт на нулевом меридиане — честные координаты, а не пропущенное поле.
func TestCreateAlertAcceptsZeroCoordinate(t *testing.T) {
	router := newAlertTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 21, "title": "Vía inundada", "category": "flooding", "latitude": 51.4779, "longitude": 0, "likes": 0, "dislikes": 0, "comment_count": 0}`))
	})

	w := doJSON(t, router, http.MethodPost, "/alerts",
		`{"title": "Vía inundada", "description": "Junto al observatorio", "category": "flooding", "latitude": 51.4779, "longitude": 0}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateAlertRejectsMissingCoordinate(t *testing.T) {
	router := newAlertTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the upstream")
	})

	w := doJSON(t, router, http.MethodPost, "/alerts",
		`{"title": "Vía inundada", "description": "Junto al observatorio", "category": "flooding", "latitude": 51.4779}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAlertRejectsOutOfRangeCoordinate(t *testing.T) {
	router := newAlertTestRouter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the upstream")
	})

	w := doJSON(t, router, http.MethodPost, "/alerts",
		`{"title": "Vía inundada", "description": "Junto al observatorio", "category": "flooding", "latitude": 91.0, "longitude": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
