// Package api exposes monthly records and the auth endpoints over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"monthlydata/internal/auth"
	"monthlydata/internal/events"
	"monthlydata/internal/logging"
	"monthlydata/internal/store"

	"github.com/gin-gonic/gin"
)

// Server holds the handler dependencies.
type Server struct {
	store  store.Store
	auth   *auth.Service
	tokens *auth.Tokens
	events events.Publisher
	log    *slog.Logger
}

func NewServer(st store.Store, svc *auth.Service, tokens *auth.Tokens, pub events.Publisher, log *slog.Logger) *Server {
	if pub == nil {
		pub = events.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: st, auth: svc, tokens: tokens, events: pub, log: log}
}

// Router returns a fresh gin engine with every route wired.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(s.log))
	s.setupRoutes(r)
	return r
}

func (s *Server) setupRoutes(r *gin.Engine) {
	r.GET("/healthz", s.healthHandler)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", s.registerHandler)
	authGroup.POST("/login", s.loginHandler)
	authGroup.POST("/refresh", s.refreshHandler)
	authGroup.POST("/revoke", s.revokeHandler)
	authGroup.GET("/me", auth.RequireAuth(s.tokens), s.meHandler)

	data := r.Group("/api/data")
	data.Use(auth.RequireAuth(s.tokens))
	data.GET("", s.listRecordsHandler)
	data.GET("/:id", s.getRecordHandler)

	admin := data.Group("")
	admin.Use(auth.RequireAdmin())
	admin.POST("", s.createRecordHandler)
	admin.PUT("/:id", s.updateRecordHandler)
	admin.DELETE("/:id", s.deleteRecordHandler)
}

func (s *Server) healthHandler(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		logging.FromContext(c.Request.Context()).Error("Health check failed",
			logging.FieldComponent, logging.ComponentStorage,
			logging.FieldError, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// serverError logs err with the request logger and answers with the generic 500 body.
func serverError(c *gin.Context, component, op string, err error) {
	logging.FromContext(c.Request.Context()).Error("Request failed",
		logging.FieldComponent, component,
		logging.FieldOperation, op,
		logging.FieldError, err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": msgServerError})
}
