package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/blocktick/internal/eventbus"
	"github.com/annel0/blocktick/internal/logging"
	"github.com/annel0/blocktick/internal/middleware"
	"github.com/annel0/blocktick/internal/world"
	"github.com/annel0/blocktick/internal/world/block"
)

// RestServer отладочный REST API мира: чтение и изменение блоков,
// статистика тиков, подписка на дельты чанков.
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server
	world      *world.World
	deltas     *world.BlockDeltaManager
	bus        eventbus.EventBus
	metrics    *ServerMetrics
	logger     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string                   // адрес для запуска сервера, например ":8088"
	World    *world.World             // обслуживаемый мир
	Deltas   *world.BlockDeltaManager // менеджер дельт; nil отключает /api/deltas
	Bus      eventbus.EventBus        // шина событий для статистики; может быть nil
	Registry *prometheus.Registry     // реестр метрик; nil отключает /metrics
	Logger   *logging.Logger
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.World == nil {
		return nil, errors.New("rest server requires a world")
	}
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Logger == nil {
		config.Logger = logging.GetServerLogger()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("blocktick_api"))
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	if config.Registry != nil {
		promMw, err := middleware.NewPrometheusMiddleware("rest_api", config.Registry)
		if err != nil {
			return nil, err
		}
		router.Use(promMw.Handler())
		middleware.RegisterMetricsEndpoint(router, config.Registry)
	}

	rs := &RestServer{
		router:  router,
		world:   config.World,
		deltas:  config.Deltas,
		bus:     config.Bus,
		metrics: NewServerMetrics(),
		logger:  config.Logger,
	}
	rs.httpServer = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs, nil
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.GET("/server", rs.handleServerInfo)
	api.GET("/types", rs.handleTypes)

	w := api.Group("/world")
	{
		w.GET("/stats", rs.handleWorldStats)
		w.GET("/tick", rs.handleLastTick)
		w.GET("/chunks", rs.handleLoadedChunks)
		w.POST("/chunks", rs.handleLoadChunk)
		w.DELETE("/chunks/:x/:y/:z", rs.handleUnloadChunk)
		w.POST("/save", rs.handleSaveAll)
	}

	blocks := api.Group("/blocks/:x/:y/:z")
	{
		blocks.GET("", rs.handleGetBlock)
		blocks.PUT("", rs.handleSetBlock)
		blocks.DELETE("", rs.handleBreakBlock)
		blocks.POST("/place", rs.handlePlaceBlock)
		blocks.POST("/schedule", rs.handleScheduleTick)
	}

	if rs.deltas != nil {
		deltas := api.Group("/deltas")
		deltas.POST("", rs.handleSubscribeDeltas)
		deltas.GET("/:id", rs.handlePollDeltas)
		deltas.DELETE("/:id", rs.handleUnsubscribeDeltas)
	}
}

// Handler возвращает http.Handler сервера (используется в тестах)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает REST сервер и блокируется до его остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.httpServer.Addr)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает REST сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpServer.Shutdown(ctx)
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"tick":   rs.world.CurrentTick(),
		"time":   time.Now().Unix(),
	})
}

func (rs *RestServer) handleServerInfo(c *gin.Context) {
	data := gin.H{"process": rs.metrics.Snapshot()}
	if rs.bus != nil {
		data["eventbus"] = rs.bus.Metrics()
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Информация о сервере", Data: data})
}

// statusFor сопоставляет ошибки мира HTTP-статусам
func statusFor(err error) int {
	switch {
	case errors.Is(err, block.ErrUnloaded):
		return http.StatusConflict
	case errors.Is(err, block.ErrUnknownBlock):
		return http.StatusNotFound
	case errors.Is(err, block.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, block.ErrPlacementDenied):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (rs *RestServer) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		rs.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}
