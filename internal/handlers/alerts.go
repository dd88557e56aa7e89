// internal/handlers/alerts.go
package handlers

import (
	"io"
	"net/http"
	"strconv"
	"sync"

	"alerta-vecinal/internal/api"
	"alerta-vecinal/internal/mapview"
	"alerta-vecinal/internal/models"
	"alerta-vecinal/internal/refresh"
	"alerta-vecinal/internal/session"
	"alerta-vecinal/internal/toast"
	"alerta-vecinal/pkg/validator"

	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	client       *api.Client
	store        *session.Store
	renderer     *mapview.Renderer
	poller       *refresh.Poller
	toasts       *toast.Notifier
	maxImageSize int64

	// Справочник категорий загружается один раз за сессию
	catMu      sync.Mutex
	categories []models.Category
}

func NewAlertHandler(client *api.Client, store *session.Store, renderer *mapview.Renderer, poller *refresh.Poller, toasts *toast.Notifier, maxImageSize int64) *AlertHandler {
	return &AlertHandler{
		client:       client,
		store:        store,
		renderer:     renderer,
		poller:       poller,
		toasts:       toasts,
		maxImageSize: maxImageSize,
	}
}

// ResetCategories сбрасывает кеш справочника (новая сессия).
func (h *AlertHandler) ResetCategories() {
	h.catMu.Lock()
	h.categories = nil
	h.catMu.Unlock()
}

func (h *AlertHandler) GetCategories(c *gin.Context) {
	h.catMu.Lock()
	cached := h.categories
	h.catMu.Unlock()
	if cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	cats, err := h.client.Categories(c.Request.Context())
	if err != nil {
		// Справочник известен заранее, 401 уже обработан клиентом API
		c.JSON(http.StatusOK, models.BuiltinCategories)
		return
	}

	h.catMu.Lock()
	h.categories = cats
	h.catMu.Unlock()
	h.renderer.SetCategories(cats)

	c.JSON(http.StatusOK, cats)
}

func (h *AlertHandler) GetAlerts(c *gin.Context) {
	alerts, err := h.client.Alerts(c.Request.Context())
	if err != nil {
		status, detail := upstreamError(err, "No se pudieron cargar las alertas")
		c.JSON(status, gin.H{"error": detail})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *AlertHandler) GetMyAlerts(c *gin.Context) {
	alerts, err := h.client.MyAlerts(c.Request.Context())
	if err != nil {
		status, detail := upstreamError(err, "No se pudieron cargar tus alertas")
		c.JSON(status, gin.H{"error": detail})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *AlertHandler) GetNearbyAlerts(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Latitud y longitud son requeridas"})
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius", "5"), 64)
	if err != nil {
		radius = 5
	}

	alerts, err := h.client.NearbyAlerts(c.Request.Context(), lat, lng, radius)
	if err != nil {
		status, detail := upstreamError(err, "No se pudieron cargar las alertas cercanas")
		c.JSON(status, gin.H{"error": detail})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// GetAlert — публичная карточка алерта.
func (h *AlertHandler) GetAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}

	alert, err := h.client.Alert(c.Request.Context(), id)
	if err != nil {
		if api.IsNotFound(err) {
			// Оболочка показывает сообщение и уходит на список с задержкой
			c.JSON(http.StatusNotFound, gin.H{
				"error":    "La alerta no existe",
				"redirect": "/alerts",
			})
			return
		}
		status, detail := upstreamError(err, "No se pudo cargar la alerta")
		c.JSON(status, gin.H{"error": detail})
		return
	}
	c.JSON(http.StatusOK, alert)
}

// CreateAlert принимает JSON либо multipart с изображением. Неудачная
// отправка не ретраится: форма остаётся заполненной у оболочки.
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	form, ok := h.bindAlertForm(c)
	if !ok {
		return
	}

	alert, err := h.client.CreateAlert(c.Request.Context(), *form)
	if err != nil {
		status, detail := upstreamError(err, "No se pudo crear la alerta")
		c.JSON(status, gin.H{"error": detail})
		return
	}

	h.toasts.Success("Alerta creada")
	h.renderer.ClearSelectionMarker()
	h.poller.Refresh()
	c.JSON(http.StatusCreated, alert)
}

func (h *AlertHandler) UpdateAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	if !h.ensureOwner(c, id) {
		return
	}

	form, ok := h.bindAlertForm(c)
	if !ok {
		return
	}

	alert, err := h.client.UpdateAlert(c.Request.Context(), id, *form)
	if err != nil {
		status, detail := upstreamError(err, "No se pudo actualizar la alerta")
		c.JSON(status, gin.H{"error": detail})
		return
	}

	h.toasts.Success("Alerta actualizada")
	h.poller.Refresh()
	c.JSON(http.StatusOK, alert)
}

func (h *AlertHandler) DeleteAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	if !h.ensureOwner(c, id) {
		return
	}

	if err := h.client.DeleteAlert(c.Request.Context(), id); err != nil {
		status, detail := upstreamError(err, "No se pudo eliminar la alerta")
		c.JSON(status, gin.H{"error": detail})
		return
	}

	h.toasts.Success("Alerta eliminada")
	h.poller.Refresh()
	c.JSON(http.StatusOK, gin.H{"message": "Alerta eliminada"})
}

type reactRequest struct {
	ReactionType string `json:"reaction_type" binding:"required,reaction"`
}

// React переключает реакцию: повторный выбор той же реакции превращается
// в remove по снапшоту собственной реакции.
func (h *AlertHandler) React(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}

	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	reaction := req.ReactionType
	if snapshot, found := h.renderer.Alert(id); found && reaction != models.ReactionRemove {
		reaction = snapshot.ToggleReaction(reaction)
	}

	alert, err := h.client.React(c.Request.Context(), id, reaction)
	if err != nil {
		status, detail := upstreamError(err, "No se pudo registrar la reacción")
		c.JSON(status, gin.H{"error": detail})
		return
	}

	h.poller.Refresh()
	c.JSON(http.StatusOK, alert)
}

func (h *AlertHandler) CloseAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	if !h.ensureOwner(c, id) {
		return
	}

	alert, err := h.client.CloseAlert(c.Request.Context(), id)
	if err != nil {
		status, detail := upstreamError(err, "No se pudo cerrar la alerta")
		c.JSON(status, gin.H{"error": detail})
		return
	}

	h.toasts.Success("Alerta resuelta")
	h.poller.Refresh()
	c.JSON(http.StatusOK, alert)
}

func (h *AlertHandler) GetComments(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}

	comments, err := h.client.Comments(c.Request.Context(), id)
	if err != nil {
		status, detail := upstreamError(err, "No se pudieron cargar los comentarios")
		c.JSON(status, gin.H{"error": detail})
		return
	}
	c.JSON(http.StatusOK, comments)
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required,max=1000"`
}

func (h *AlertHandler) AddComment(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	comment, err := h.client.AddComment(c.Request.Context(), id, req.Text)
	if err != nil {
		status, detail := upstreamError(err, "No se pudo publicar el comentario")
		c.JSON(status, gin.H{"error": detail})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// RefreshAlerts просит внеочередное обновление набора алертов.
func (h *AlertHandler) RefreshAlerts(c *gin.Context) {
	h.poller.Refresh()
	c.JSON(http.StatusAccepted, gin.H{"message": "Refresh scheduled"})
}

// bindAlertForm разбирает форму алерта из JSON или multipart и валидирует
// вложение. Возвращает false, если ответ уже отправлен.
func (h *AlertHandler) bindAlertForm(c *gin.Context) (*api.AlertForm, bool) {
	var form api.AlertForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return nil, false
	}

	file, err := c.FormFile("image")
	if err == nil && file != nil {
		contentType := file.Header.Get("Content-Type")
		if err := validator.ValidateImage(contentType, file.Size, h.maxImageSize); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo leer la imagen"})
			return nil, false
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No se pudo leer la imagen"})
			return nil, false
		}

		form.Image = &api.ImageFile{
			Name:        file.Filename,
			ContentType: contentType,
			Data:        data,
		}
	}

	return &form, true
}

// ensureOwner — защитная клиентская проверка владения; сервер всё равно
// проверит сам.
func (h *AlertHandler) ensureOwner(c *gin.Context, id int64) bool {
	current := h.store.CurrentUser()
	if current == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return false
	}

	snapshot, found := h.renderer.Alert(id)
	if !found {
		alert, err := h.client.Alert(c.Request.Context(), id)
		if err != nil {
			// Не удалось проверить — пропускаем, решит сервер
			return true
		}
		snapshot = *alert
	}

	if snapshot.User != nil && !snapshot.IsOwnedBy(current.ID) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":    "Solo el autor puede modificar esta alerta",
			"redirect": "/alerts",
		})
		return false
	}
	return true
}

func alertID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return 0, false
	}
	return id, true
}
