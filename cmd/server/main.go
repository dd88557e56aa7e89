// cmd/server/main.go - Alerta Vecinal Gateway
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Внутренние пакеты проекта
	"alerta-vecinal/internal/api"
	"alerta-vecinal/internal/config"
	"alerta-vecinal/internal/geocode"
	"alerta-vecinal/internal/handlers"
	"alerta-vecinal/internal/mapview"
	"alerta-vecinal/internal/middleware"
	"alerta-vecinal/internal/refresh"
	"alerta-vecinal/internal/session"
	"alerta-vecinal/internal/toast"
	"alerta-vecinal/pkg/auth"
	"alerta-vecinal/pkg/validator"

	// Внешние зависимости
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var (
	serverStartTime = time.Now()

	appVersion = "1.0.0"
	buildTime  = "unknown"
	gitCommit  = "unknown"
)

func main() {
	// Загружаем конфигурацию (включая .env в режиме разработки)
	cfg := config.Load()

	// Настраиваем логирование
	setupLogging(cfg)

	printStartupInfo(cfg)

	// Инициализируем валидатор
	validator.Init()

	// Хранилище сессии: токен и личность переживают рестарт шлюза
	store, err := session.NewStore(cfg.StateDir)
	if err != nil {
		log.Fatalf("❌ Failed to open session store: %v", err)
	}

	// Клиент удалённого API алертов
	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, store)

	// Канал тостов
	toasts := toast.NewNotifier()

	// WebSocket Hub для push в браузерную оболочку
	wsHub := handlers.NewHub()
	go wsHub.Run()
	defer wsHub.Shutdown()

	// Рендерер карты поверх виджета, зеркалируемого в оболочку
	renderer := mapview.NewRenderer(handlers.NewShellWidgetFactory(wsHub), mapview.Options{
		DefaultCenter: mapview.LatLng{Lat: cfg.DefaultLatitude, Lng: cfg.DefaultLongitude},
		DefaultZoom:   cfg.DefaultZoom,
	})

	// Клик по маркеру ведёт на карточку алерта
	renderer.OnMarkerActivated(func(alertID int64) {
		wsHub.Broadcast("navigate", map[string]interface{}{
			"path": fmt.Sprintf("/alerts/%d", alertID),
		})
	})

	// Протухший токен: одна уборка и один редирект на вход
	client.OnForcedLogout(func() {
		toasts.Warning("Tu sesión ha expirado")
		wsHub.Broadcast("navigate", map[string]interface{}{"path": "/login"})
	})

	// Цикл обновления алертов с монотонными номерами запросов
	poller := refresh.NewPoller(cfg.RefreshInterval, client.Alerts, renderer)
	poller.OnError(func(err error) {
		toasts.Error("No se pudieron actualizar las alertas")
	})

	// Геокодер
	geocoder := geocode.NewClient(cfg.NominatimURL, cfg.APITimeout)

	// JWT менеджер для сессионной куки оболочки
	jwtManager := auth.NewJWTManager(cfg.SessionSecret, cfg.SessionTTL)

	// Базовый контекст фоновых работ
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	// Инициализируем хендлеры
	authHandler := handlers.NewAuthHandler(client, store, jwtManager, toasts, cfg.SessionTTL, cfg.IsProduction())
	alertHandler := handlers.NewAlertHandler(client, store, renderer, poller, toasts, cfg.MaxImageSize)
	mapHandler := handlers.NewMapHandler(baseCtx, renderer, geocoder, poller, toasts)
	profileHandler := handlers.NewProfileHandler(client, store, toasts)
	wsHandler := handlers.NewWebSocketHandler(wsHub, jwtManager)

	// Пробрасываем тосты и смену сессии в оболочку
	go pumpToasts(toasts, wsHub)
	go pumpSessionChanges(store, wsHub, alertHandler)

	router := setupRouter(cfg, authHandler, alertHandler, mapHandler, profileHandler, wsHandler, jwtManager, store, wsHub)

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		log.Infof("🚀 Alerta Vecinal Gateway v%s starting...", appVersion)
		log.Infof("🌐 Gateway running on http://%s:%s", cfg.Host, cfg.Port)
		log.Infof("📡 WebSocket endpoint: ws://%s:%s/ws", cfg.Host, cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("🛑 Shutting down gateway...")

	// Останавливаем опрос и карту
	cancelBase()
	renderer.Teardown()

	wsHub.Broadcast("system", map[string]interface{}{
		"message": "Gateway is shutting down",
	})
	time.Sleep(500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnf("⚠️  Server forced to shutdown: %v", err)
	} else {
		log.Info("✅ Gateway gracefully stopped")
	}

	log.Info("👋 Alerta Vecinal Gateway exited")
}

// setupLogging настраивает логирование в зависимости от окружения
func setupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&log.JSONFormatter{})
		log.SetLevel(log.InfoLevel)
	} else {
		gin.SetMode(gin.DebugMode)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		log.SetLevel(log.DebugLevel)
	}
}

// printStartupInfo выводит информацию о запуске шлюза
func printStartupInfo(cfg *config.Config) {
	log.Info("================================================================================")
	log.Infof("🗺️  Alerta Vecinal Gateway")
	log.Infof("📌 Version: %s | Build: %s | Commit: %s", appVersion, buildTime, gitCommit)
	log.Infof("🌍 Environment: %s", cfg.Env)
	log.Infof("🔧 Configuration:")
	log.Infof("   • Host: %s", cfg.Host)
	log.Infof("   • Port: %s", cfg.Port)
	log.Infof("   • Remote API: %s", cfg.APIBaseURL)
	log.Infof("   • Refresh interval: %s", cfg.RefreshInterval)
	log.Infof("   • CORS Origins: %v", cfg.AllowedOrigins)
	log.Info("================================================================================")
}

// pumpToasts пробрасывает тосты в websocket-оболочку
func pumpToasts(toasts *toast.Notifier, wsHub *handlers.Hub) {
	ch, cancel := toasts.Subscribe()
	defer cancel()
	for t := range ch {
		wsHub.Broadcast("toast", t)
	}
}

// pumpSessionChanges сообщает оболочке о входе и выходе. Справочник
// категорий живёт одну сессию, на смене сессии кеш сбрасывается.
func pumpSessionChanges(store *session.Store, wsHub *handlers.Hub, alerts *handlers.AlertHandler) {
	ch, cancel := store.Subscribe()
	defer cancel()
	for user := range ch {
		alerts.ResetCategories()
		wsHub.Broadcast("session", map[string]interface{}{"user": user})
	}
}

// setupRouter настраивает все маршруты
func setupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	alertHandler *handlers.AlertHandler,
	mapHandler *handlers.MapHandler,
	profileHandler *handlers.ProfileHandler,
	wsHandler *handlers.WebSocketHandler,
	jwtManager *auth.JWTManager,
	store *session.Store,
	wsHub *handlers.Hub,
) *gin.Engine {
	router := gin.New()

	// Глобальные middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	// CORS для браузерной оболочки
	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// WebSocket endpoint - должен быть до других маршрутов
	router.GET("/ws", wsHandler.HandleWebSocket)

	setupHealthRoutes(router, wsHub)

	v1 := router.Group("/api/v1")
	{
		setupPublicRoutes(v1, cfg, authHandler, alertHandler, mapHandler)
		setupProtectedRoutes(v1, authHandler, alertHandler, profileHandler, jwtManager, store)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Endpoint not found",
			"path":  c.Request.URL.Path,
		})
	})

	return router
}

// setupHealthRoutes настраивает health check
func setupHealthRoutes(router *gin.Engine, wsHub *handlers.Hub) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(serverStartTime).String(),
			"version":   appVersion,
			"build": gin.H{
				"time":   buildTime,
				"commit": gitCommit,
			},
			"stats": gin.H{
				"websocket_connections": wsHub.ConnectionsCount(),
			},
		})
	})
}

// setupPublicRoutes настраивает публичные маршруты
func setupPublicRoutes(
	v1 *gin.RouterGroup,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	alertHandler *handlers.AlertHandler,
	mapHandler *handlers.MapHandler,
) {
	// Авторизация и регистрация
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/register", authHandler.Register)
	v1.GET("/auth/me", authHandler.Me)

	// Публичный контент
	v1.GET("/categories", alertHandler.GetCategories)
	v1.GET("/alerts", alertHandler.GetAlerts)
	v1.GET("/alerts/nearby", alertHandler.GetNearbyAlerts)
	v1.GET("/alerts/:id", alertHandler.GetAlert)
	v1.POST("/alerts/refresh", alertHandler.RefreshAlerts)

	// Состояние карты
	v1.POST("/map/container", mapHandler.Attach)
	v1.POST("/map/teardown", mapHandler.Teardown)
	v1.POST("/map/selection", mapHandler.PlaceSelection)
	v1.GET("/map/selection", mapHandler.GetSelection)
	v1.DELETE("/map/selection", mapHandler.ClearSelection)
	v1.PUT("/map/filter", mapHandler.SetFilter)
	v1.POST("/map/center", mapHandler.Center)
	v1.POST("/map/zoom", mapHandler.Zoom)
	v1.POST("/map/locate", mapHandler.Locate)

	// Поиск мест придерживаем: публичный Nominatim не любит частых запросов
	geocodeLimiter := middleware.NewRateLimiter(cfg.GeocodePerMinute, time.Minute)
	v1.GET("/map/search", geocodeLimiter.RateLimit(), mapHandler.Search)
}

// setupProtectedRoutes настраивает защищённые маршруты
func setupProtectedRoutes(
	v1 *gin.RouterGroup,
	authHandler *handlers.AuthHandler,
	alertHandler *handlers.AlertHandler,
	profileHandler *handlers.ProfileHandler,
	jwtManager *auth.JWTManager,
	store *session.Store,
) {
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(jwtManager, store))

	protected.POST("/auth/logout", authHandler.Logout)

	// Мои алерты и мутации
	protected.GET("/alerts/mine", alertHandler.GetMyAlerts)
	protected.POST("/alerts", alertHandler.CreateAlert)
	protected.PUT("/alerts/:id", alertHandler.UpdateAlert)
	protected.DELETE("/alerts/:id", alertHandler.DeleteAlert)
	protected.POST("/alerts/:id/react", alertHandler.React)
	protected.POST("/alerts/:id/close", alertHandler.CloseAlert)
	protected.GET("/alerts/:id/comments", alertHandler.GetComments)
	protected.POST("/alerts/:id/comments", alertHandler.AddComment)

	// Профиль
	protected.GET("/profile", profileHandler.GetProfile)
	protected.PATCH("/profile", profileHandler.UpdateProfile)
	protected.POST("/profile/change-password", profileHandler.ChangePassword)
}
