package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denisAlshanov/ytgrab/internal/models"
)

const Version = "1.0.0"

// ReadinessChecker reports whether a dependency can serve requests.
type ReadinessChecker interface {
	Ready() bool
}

type HealthHandler struct {
	extractor ReadinessChecker
	startedAt time.Time
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Version   string                   `json:"version"`
	Uptime    string                   `json:"uptime"`
	Services  map[string]ServiceHealth `json:"services"`
}

type ServiceHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func NewHealthHandler(extractor ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		extractor: extractor,
		startedAt: time.Now(),
	}
}

// Root godoc
// @Summary Service banner
// @Description Returns a fixed message while the process is running
// @Tags health
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Router / [get]
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, models.MessageResponse{Message: "YouTube Downloader API is running"})
}

// Health godoc
// @Summary Health check endpoint
// @Description Check the health of the service and its dependencies
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Success 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Services: map[string]ServiceHealth{
			"youtube": h.checkExtractor(),
		},
	}

	for _, service := range response.Services {
		if service.Status != "healthy" {
			response.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
	}

	c.JSON(http.StatusOK, response)
}

// Readiness godoc
// @Summary Readiness check endpoint
// @Description Reports ready once the YouTube client finished initializing
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Success 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	ready := h.extractor != nil && h.extractor.Ready()

	response := map[string]interface{}{
		"ready":     ready,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks": map[string]interface{}{
			"youtube": map[string]interface{}{"ready": ready},
		},
	}

	if ready {
		c.JSON(http.StatusOK, response)
	} else {
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

// Liveness godoc
// @Summary Liveness check endpoint
// @Description Check if the service is alive
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /live [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"alive":     true,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *HealthHandler) checkExtractor() ServiceHealth {
	if h.extractor == nil || !h.extractor.Ready() {
		return ServiceHealth{Status: "unhealthy", Error: "youtube client is not ready"}
	}
	return ServiceHealth{Status: "healthy"}
}
