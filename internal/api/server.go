package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mt5-bridge/internal/gateway"
	"mt5-bridge/internal/stream"
)

// Server wires the HTTP surface around the command gateway.
type Server struct {
	Router  *gin.Engine
	Gateway *gateway.Gateway
	Hub     *stream.Hub
	Log     *zap.Logger
	Meta    SystemMeta
}

// SystemMeta describes runtime status exposed by the health endpoints.
type SystemMeta struct {
	Service     string
	Version     string
	SimTerminal bool
}

// Options tunes transport behavior resolved from config.
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewServer(gw *gateway.Gateway, hub *stream.Hub, log *zap.Logger, meta SystemMeta, opts Options) *Server {
	r := gin.New()

	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	// Middleware stack (order matters!)
	r.Use(ginzap.RecoveryWithZap(log, true))
	r.Use(RequestIDMiddleware())
	r.Use(ginzap.Ginzap(log, time.RFC3339, true))
	r.Use(RateLimitMiddleware(log))
	r.Use(TimeoutMiddleware(opts.RequestTimeout))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	s := &Server{
		Router:  r,
		Gateway: gw,
		Hub:     hub,
		Log:     log,
		Meta:    meta,
	}
	s.routes()
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) routes() {
	s.Router.GET("/", s.health)
	s.Router.GET("/status", s.health)

	mt5 := s.Router.Group("/mt5")
	{
		mt5.POST("/connect", s.connect)
		mt5.POST("/disconnect", s.disconnect)
		mt5.POST("/account_info", s.accountInfo)
		mt5.POST("/positions", s.positions)
		mt5.POST("/place_order", s.placeOrder)
		mt5.POST("/close_position", s.closePosition)
		mt5.POST("/close_partial", s.closePartial)
		mt5.POST("/modify_position", s.modifyPosition)
		mt5.POST("/cancel_order", s.cancelOrder)
		mt5.POST("/historical_data", s.historicalData)
		mt5.POST("/history", s.historicalData)

		mt5.GET("/price", s.price)
		mt5.GET("/symbols", s.symbols)
		mt5.GET("/sessions", s.sessions)
		mt5.GET("/stream", s.stream)
	}
}

func (s *Server) health(c *gin.Context) {
	count, _ := s.Gateway.SessionsSummary()
	c.JSON(http.StatusOK, gin.H{
		"service":         s.Meta.Service,
		"status":          "running",
		"version":         s.Meta.Version,
		"sim_terminal":    s.Meta.SimTerminal,
		"active_sessions": count,
	})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
