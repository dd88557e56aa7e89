// internal/handlers/map.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"alerta-vecinal/internal/geocode"
	"alerta-vecinal/internal/mapview"
	"alerta-vecinal/internal/refresh"
	"alerta-vecinal/internal/toast"
	"alerta-vecinal/pkg/validator"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// MapHandler — контроллер состояния карты. Владеет жизненным циклом
// рендерера и цикла обновления: attach запускает опрос, teardown гасит
// таймер и освобождает виджет — иначе таймер продолжит стрелять по уже
// разобранному виджету.
type MapHandler struct {
	renderer *mapview.Renderer
	geocoder *geocode.Client
	poller   *refresh.Poller
	toasts   *toast.Notifier

	baseCtx context.Context

	mu          sync.Mutex
	stopPolling context.CancelFunc
}

func NewMapHandler(baseCtx context.Context, renderer *mapview.Renderer, geocoder *geocode.Client, poller *refresh.Poller, toasts *toast.Notifier) *MapHandler {
	return &MapHandler{
		renderer: renderer,
		geocoder: geocoder,
		poller:   poller,
		toasts:   toasts,
		baseCtx:  baseCtx,
	}
}

// Attach — явный сигнал готовности контейнера от оболочки (вместо
// циклического опроса DOM). Ошибки готовности типизированы: оболочка
// повторяет attach после layout.
func (h *MapHandler) Attach(c *gin.Context) {
	var container mapview.Container
	if err := c.ShouldBindJSON(&container); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	err := h.renderer.Initialize(container)
	switch {
	case errors.Is(err, mapview.ErrContainerMissing), errors.Is(err, mapview.ErrZeroDimensions):
		// Гонка старта, не показываем пользователю
		log.Debugf("Контейнер карты не готов: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"retry": true,
		})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Map initialization failed"})
		return
	}

	h.mu.Lock()
	if h.stopPolling == nil {
		ctx, cancel := context.WithCancel(h.baseCtx)
		h.stopPolling = cancel
		go h.poller.Run(ctx)
	}
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "Map attached"})
}

// Teardown останавливает опрос и освобождает виджет. Идемпотентен.
func (h *MapHandler) Teardown(c *gin.Context) {
	h.mu.Lock()
	if h.stopPolling != nil {
		h.stopPolling()
		h.stopPolling = nil
	}
	h.mu.Unlock()

	h.renderer.Teardown()
	c.JSON(http.StatusOK, gin.H{"message": "Map released"})
}

type coordRequest struct {
	Latitude  *float64 `json:"lat" binding:"required"`
	Longitude *float64 `json:"lng" binding:"required"`
}

// PlaceSelection ставит маркер будущего алерта по клику на карте.
func (h *MapHandler) PlaceSelection(c *gin.Context) {
	var req coordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}
	if err := validator.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.renderer.PlaceSelectionMarker(*req.Latitude, *req.Longitude); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Map is not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lat": *req.Latitude, "lng": *req.Longitude})
}

func (h *MapHandler) ClearSelection(c *gin.Context) {
	h.renderer.ClearSelectionMarker()
	c.JSON(http.StatusOK, gin.H{"message": "Selection cleared"})
}

// GetSelection возвращает выбранную пару координат целиком — обе либо
// ничего.
func (h *MapHandler) GetSelection(c *gin.Context) {
	pos, ok := h.renderer.SelectedLocation()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No location selected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lat": pos.Lat, "lng": pos.Lng})
}

type filterRequest struct {
	Categories []string `json:"categories"`
}

// SetFilter ограничивает видимые маркеры активными категориями. null
// снимает фильтр, пустой список скрывает всё.
func (h *MapHandler) SetFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	h.renderer.SetCategoryFilter(req.Categories)
	c.JSON(http.StatusOK, gin.H{"message": "Filter applied"})
}

type centerRequest struct {
	Latitude  *float64 `json:"lat" binding:"required"`
	Longitude *float64 `json:"lng" binding:"required"`
	Zoom      int      `json:"zoom"`
}

func (h *MapHandler) Center(c *gin.Context) {
	var req centerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}
	if err := validator.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.renderer.CenterOn(*req.Latitude, *req.Longitude, req.Zoom)
	c.JSON(http.StatusOK, gin.H{"message": "Centered"})
}

type zoomRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (h *MapHandler) Zoom(c *gin.Context) {
	var req zoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if req.Delta > 0 {
		h.renderer.ZoomIn()
	} else {
		h.renderer.ZoomOut()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Zoomed"})
}

// Locate отмечает местоположение пользователя: геолокацию делает браузер,
// оболочка присылает готовые координаты.
func (h *MapHandler) Locate(c *gin.Context) {
	var req coordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}
	if err := validator.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.renderer.PlaceUserMarker(*req.Latitude, *req.Longitude); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Map is not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lat": *req.Latitude, "lng": *req.Longitude})
}

// Search геокодирует текстовый запрос, центрирует карту и ставит маркер
// выбора на первом результате.
func (h *MapHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
		return
	}

	lat, lng, err := h.geocoder.Search(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, geocode.ErrNoResults) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No se encontraron resultados para \"" + query + "\""})
			return
		}
		log.Warnf("Ошибка геокодирования %q: %v", query, err)
		h.toasts.Error("Error al buscar la ubicación. Intenta de nuevo más tarde.")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Error al buscar la ubicación"})
		return
	}

	h.renderer.CenterOn(lat, lng, 15)
	if err := h.renderer.PlaceSelectionMarker(lat, lng); err != nil {
		log.Debugf("Маркер выбора после поиска не поставлен: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"lat": lat, "lng": lng})
}
