// internal/handlers/auth.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"alerta-vecinal/internal/api"
	"alerta-vecinal/internal/middleware"
	"alerta-vecinal/internal/session"
	"alerta-vecinal/internal/toast"
	"alerta-vecinal/pkg/auth"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type AuthHandler struct {
	client     *api.Client
	store      *session.Store
	jwtManager *auth.JWTManager
	toasts     *toast.Notifier
	cookieTTL  time.Duration
	secure     bool
}

func NewAuthHandler(client *api.Client, store *session.Store, jwtManager *auth.JWTManager, toasts *toast.Notifier, cookieTTL time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{
		client:     client,
		store:      store,
		jwtManager: jwtManager,
		toasts:     toasts,
		cookieTTL:  cookieTTL,
		secure:     secure,
	}
}

// Login обменивает учётные данные на сессию: токен удалённого API уходит
// в хранилище, браузер получает только подписанную куку.
func (h *AuthHandler) Login(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.client.Login(c.Request.Context(), req)
	if err != nil {
		status, detail := upstreamError(err, "Credenciales inválidas")
		c.JSON(status, gin.H{"error": detail})
		return
	}

	h.store.SetSession(&resp.User, resp.Token)
	h.issueCookie(c, resp.User.ID, resp.User.Username)
	h.toasts.Success("Sesión iniciada")

	c.JSON(http.StatusOK, gin.H{"user": resp.User})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req api.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.client.Register(c.Request.Context(), req)
	if err != nil {
		status, detail := upstreamError(err, "No se pudo completar el registro")
		c.JSON(status, gin.H{"error": detail})
		return
	}

	h.store.SetSession(&resp.User, resp.Token)
	h.issueCookie(c, resp.User.ID, resp.User.Username)
	h.toasts.Success("Cuenta creada")

	c.JSON(http.StatusCreated, gin.H{"user": resp.User})
}

// Logout чистит локальную сессию синхронно и безусловно, а сервер
// уведомляет уже в фоне: зависшая сеть не должна оставлять интерфейс в
// авторизованном состоянии.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := h.store.Token()
	h.store.Logout()
	h.clearCookie(c)

	if token != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := h.client.NotifyLogout(ctx, token); err != nil {
				log.Warnf("Серверный logout не удался: %v", err)
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sesión cerrada"})
}

// Me возвращает снапшот текущего пользователя.
func (h *AuthHandler) Me(c *gin.Context) {
	user := h.store.CurrentUser()
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) issueCookie(c *gin.Context, userID int64, username string) {
	token, err := h.jwtManager.GenerateToken(userID, username)
	if err != nil {
		log.Errorf("Не удалось выписать сессионную куку: %v", err)
		return
	}
	c.SetCookie(middleware.SessionCookieName(), token, int(h.cookieTTL.Seconds()), "/", "", h.secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetCookie(middleware.SessionCookieName(), "", -1, "/", "", h.secure, true)
}

// upstreamError переводит ошибку удалённого API в ответ шлюза: деталь
// сервера, если она есть, иначе общий текст.
func upstreamError(err error, fallback string) (int, string) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		detail := apiErr.Detail
		if detail == "" {
			detail = fallback
		}
		return apiErr.StatusCode, detail
	}
	return http.StatusBadGateway, fallback
}
