// Package http provides the HTTP read API over the outbox and the health
// endpoints.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/allisson/integration-events/internal/httputil"
	"github.com/allisson/integration-events/internal/outbox/domain"
)

// NotificationLister reads outbox rows for the inspection API.
type NotificationLister interface {
	List(ctx context.Context, status domain.NotificationStatus, offset, limit int) ([]*domain.EventNotification, error)
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The cors and metrics middlewares are
// optional; nil disables them.
func NewServer(
	host string,
	port int,
	logger *slog.Logger,
	lister NotificationLister,
	corsMiddleware gin.HandlerFunc,
	metricsMiddleware gin.HandlerFunc,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if metricsMiddleware != nil {
		router.Use(metricsMiddleware)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	handler := newEventsHandler(lister, logger)
	router.GET("/v1/events", handler.list)

	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// eventsHandler serves the outbox read API.
type eventsHandler struct {
	lister NotificationLister
	logger *slog.Logger
}

func newEventsHandler(lister NotificationLister, logger *slog.Logger) *eventsHandler {
	return &eventsHandler{lister: lister, logger: logger}
}

// listEventsResponse is the paginated payload for GET /v1/events.
type listEventsResponse struct {
	Events []eventItem `json:"events"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
}

// eventItem includes the dispatch bookkeeping the published payload omits.
type eventItem struct {
	ID                   string  `json:"id"`
	EventType            string  `json:"eventType"`
	HmppsID              *string `json:"hmppsId,omitempty"`
	PrisonID             *string `json:"prisonId,omitempty"`
	URL                  string  `json:"url"`
	Status               string  `json:"status"`
	LastModifiedDateTime string  `json:"lastModifiedDateTime"`
}

func (h *eventsHandler) list(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	status := domain.NotificationStatus(c.Query("status"))
	switch status {
	case "", domain.NotificationStatusPending, domain.NotificationStatusProcessing, domain.NotificationStatusProcessed:
	default:
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid status parameter: %s", status), h.logger)
		return
	}

	notifications, err := h.lister.List(c.Request.Context(), status, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := listEventsResponse{
		Events: make([]eventItem, 0, len(notifications)),
		Offset: offset,
		Limit:  limit,
	}
	for _, notification := range notifications {
		response.Events = append(response.Events, eventItem{
			ID:                   notification.ID.String(),
			EventType:            notification.EventType,
			HmppsID:              notification.HmppsID,
			PrisonID:             notification.PrisonID,
			URL:                  notification.URL,
			Status:               string(notification.Status),
			LastModifiedDateTime: notification.LastModifiedDateTime.UTC().Format(time.RFC3339Nano),
		})
	}

	c.JSON(http.StatusOK, response)
}
