package hub

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tickflow/config"
	"tickflow/internal/status"
	"tickflow/logger"
)

// Server exposes the client-facing endpoint: one multiplexed websocket at /ws
// plus small HTTP surfaces for health and status.
type Server struct {
	cfg      *config.Config
	hub      *Hub
	status   *status.Tracker
	httpSrv  *http.Server
	upgrader websocket.Upgrader
	log      *logger.Log
}

func NewServer(cfg *config.Config, h *Hub, st *status.Tracker) *Server {
	s := &Server{
		cfg:    cfg,
		hub:    h,
		status: st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logger.GetLogger(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/ws", s.handleWS)
	router.GET("/status", s.handleStatus)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.httpSrv = &http.Server{Addr: cfg.Hub.Addr, Handler: router}
	return s
}

func (s *Server) Start() {
	log := s.log.WithComponent("hub_server")
	go func() {
		log.WithFields(logger.Fields{"addr": s.cfg.Hub.Addr}).Info("hub server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("hub server failed")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// handleWS upgrades the connection. The optional client query parameter is a
// stable id that lets a reconnecting client get its subscription set replayed.
func (s *Server) handleWS(c *gin.Context) {
	id := c.Query("client")
	persistent := id != ""
	if id == "" {
		id = uuid.NewString()
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithComponent("hub_server").WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := newClient(id, persistent, s.hub, ws, s.cfg.Hub.SendBuffer)
	s.hub.register(client)
	go client.writePump(s.cfg.Hub.WriteTimeout, s.cfg.Hub.PingPeriod)
	go client.readPump(s.cfg.Hub.PongWait)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Snapshot())
}
