package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrelworks/streamlink/internal/command"
)

// commandRequest is the POST /commands body. Encoding selects the
// payload wire form; the firmware interprets the value by command type.
type commandRequest struct {
	Type     uint8   `json:"type" binding:"required"`
	Value    float64 `json:"value"`
	Encoding string  `json:"encoding"`
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.startedAt).String(),
			"service":   s.name,
			"connected": s.client.Connected(),
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":     s.client.Connected(),
			"uptime":    time.Since(s.startedAt).String(),
			"service":   s.name,
			"session":   s.client.SessionID(),
			"streaming": s.client.StreamStats().Running,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/telemetry/latest", func(c *gin.Context) {
		sample, ok := s.client.LatestSample()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no telemetry received yet"})
			return
		}
		c.JSON(http.StatusOK, sample)
	})

	s.router.GET("/telemetry/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.client.StreamStats())
	})

	s.router.POST("/commands", func(c *gin.Context) {
		var req commandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var err error
		switch strings.ToLower(strings.TrimSpace(req.Encoding)) {
		case "", "float":
			err = s.client.SendCommand(command.Type(req.Type), float32(req.Value))
		case "int":
			err = s.client.SendCommandInt(command.Type(req.Type), int32(req.Value))
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "encoding must be \"float\" or \"int\""})
			return
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
	})

	s.router.POST("/device/info", func(c *gin.Context) {
		if err := s.client.RequestDeviceInfo(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "requested"})
	})
}
