// Package api exposes a local status and control surface for one uploader:
// queue snapshot, aggregate progress, recent results and a websocket event
// feed. It is meant for a UI or script on the same machine, so every route
// sits behind the localhost-only middleware.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/moyoez/uploadqueue-go/api/eventhub"
	"github.com/moyoez/uploadqueue-go/api/middlewares"
	"github.com/moyoez/uploadqueue-go/queue"
	"github.com/moyoez/uploadqueue-go/share"
	"github.com/moyoez/uploadqueue-go/tool"
)

// Server is the HTTP status/control server for one uploader.
type Server struct {
	addr     string
	uploader *queue.Uploader
	hub      *eventhub.Hub
	results  *share.Results
	server   *http.Server
	mu       sync.RWMutex
}

// NewServer creates the server. hub and results may be nil; the matching
// routes are simply not registered.
func NewServer(addr string, u *queue.Uploader, hub *eventhub.Hub, results *share.Results) *Server {
	return &Server{
		addr:     addr,
		uploader: u,
		hub:      hub,
		results:  results,
	}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	v1 := engine.Group("/api/queue/v1", middlewares.OnlyAllowLocal)
	{
		v1.GET("/queue", s.handleQueue)
		v1.GET("/progress", s.handleProgress)
		v1.POST("/upload-all", s.handleUploadAll)
		v1.POST("/cancel-all", s.handleCancelAll)
		v1.POST("/upload/:id", s.handleUploadItem)
		v1.POST("/cancel/:id", s.handleCancelItem)
		v1.DELETE("/queue/:id", s.handleRemoveItem)
		v1.DELETE("/queue", s.handleClearQueue)
		if s.results != nil {
			v1.GET("/results/:id", s.handleResult)
		}
		if s.hub != nil {
			v1.GET("/events-ws", eventhub.HandleEventsWS(s.hub))
		}
	}

	return engine
}

func (s *Server) handleQueue(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(s.uploader.Snapshot()))
}

func (s *Server) handleProgress(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"progress":    s.uploader.Progress(),
		"isUploading": s.uploader.IsUploading(),
		"uploaded":    s.uploader.UploadedCount(),
		"notUploaded": s.uploader.NotUploadedCount(),
	}))
}

func (s *Server) handleUploadAll(c *gin.Context) {
	if err := s.uploader.UploadAll(); err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

func (s *Server) handleCancelAll(c *gin.Context) {
	s.uploader.CancelAll()
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

func (s *Server) handleUploadItem(c *gin.Context) {
	if err := s.uploader.UploadItem(queue.ByID(c.Param("id"))); err != nil {
		c.JSON(http.StatusNotFound, tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

func (s *Server) handleCancelItem(c *gin.Context) {
	if err := s.uploader.CancelItem(queue.ByID(c.Param("id"))); err != nil {
		c.JSON(http.StatusNotFound, tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

func (s *Server) handleRemoveItem(c *gin.Context) {
	if err := s.uploader.RemoveFromQueue(queue.ByID(c.Param("id"))); err != nil {
		c.JSON(http.StatusNotFound, tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

func (s *Server) handleClearQueue(c *gin.Context) {
	s.uploader.ClearQueue()
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

func (s *Server) handleResult(c *gin.Context) {
	res, ok := s.results.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnError("no result for item"))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(res))
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: engine,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting status API server on %s", s.addr)
	return srv.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
