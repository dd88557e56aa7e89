// internal/handlers/profile.go
package handlers

import (
	"net/http"

	"alerta-vecinal/internal/api"
	"alerta-vecinal/internal/session"
	"alerta-vecinal/internal/toast"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	client *api.Client
	store  *session.Store
	toasts *toast.Notifier
}

func NewProfileHandler(client *api.Client, store *session.Store, toasts *toast.Notifier) *ProfileHandler {
	return &ProfileHandler{client: client, store: store, toasts: toasts}
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.client.Profile(c.Request.Context())
	if err != nil {
		status, detail := upstreamError(err, "No se pudo cargar el perfil")
		c.JSON(status, gin.H{"error": detail})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var patch api.ProfileUpdate
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	profile, err := h.client.UpdateProfile(c.Request.Context(), patch)
	if err != nil {
		status, detail := upstreamError(err, "No se pudo actualizar el perfil")
		c.JSON(status, gin.H{"error": detail})
		return
	}

	// Снапшот в сессии должен отражать новые имена; если сессию уже снёс
	// принудительный выход, обновление пропускается
	h.store.UpdateUser(&profile.User)
	h.toasts.Success("Perfil actualizado")
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req api.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if err := h.client.ChangePassword(c.Request.Context(), req); err != nil {
		status, detail := upstreamError(err, "No se pudo cambiar la contraseña")
		c.JSON(status, gin.H{"error": detail})
		return
	}

	h.toasts.Success("Contraseña actualizada")
	c.JSON(http.StatusOK, gin.H{"message": "Contraseña actualizada"})
}
