package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gpucost/gpucost/pkg/apiserver/handlers"
	"github.com/gpucost/gpucost/pkg/apiserver/middleware"
	"github.com/gpucost/gpucost/pkg/config"
)

type Server struct {
	router  *gin.Engine
	tracker handlers.Tracker
	cfg     *config.Config
	logger  *zap.Logger
}

func NewServer(tracker handlers.Tracker, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		tracker: tracker,
		cfg:     cfg,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		dashboardHandler := handlers.NewDashboardHandler(s.tracker, s.logger)
		api.GET("/dashboard", dashboardHandler.Get)

		budgetHandler := handlers.NewBudgetHandler(s.tracker, s.logger)
		api.GET("/budget/check", budgetHandler.Check)

		allocationHandler := handlers.NewAllocationHandler(s.tracker, s.logger)
		api.POST("/allocate", allocationHandler.Create)

		modelHandler := handlers.NewModelHandler(s.tracker, s.logger)
		api.GET("/model/:name", modelHandler.Get)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
