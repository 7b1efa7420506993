// Package agent runs the identd node service: it owns the durable node
// identifier and serves it over the HTTP management API.
package agent

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/identd/internal/auth"
	"github.com/danmuck/identd/internal/config"
	"github.com/danmuck/identd/internal/node"
	"github.com/danmuck/identd/internal/observability"
)

const version = "0.1.0"

// Service is the agent-side node. It implements node.Node.
type Service struct {
	mu       sync.RWMutex
	id       string
	addr     string
	appeared time.Time
	store    *Store
	router   *gin.Engine
	admin    auth.Validator
}

var _ node.Node = (*Service)(nil)

// Appear builds the service: resolves the durable identifier (generating
// it on first boot unless the config pins one) and assembles the router
// with the standard middleware stack.
func Appear(cfg config.AgentConfig) (*Service, error) {
	cfg = cfg.WithDefaults()
	if err := config.ValidateAgentConfig(cfg); err != nil {
		return nil, err
	}
	observability.RegisterMetrics()

	store := NewStore(cfg.StatePath)
	id := cfg.ID
	if id == "" {
		loaded, err := store.LoadOrCreate()
		if err != nil {
			return nil, err
		}
		id = loaded
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestMiddleware(id, log.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", auth.TokenHeader},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Service{
		id:       id,
		addr:     cfg.Addr,
		appeared: time.Now(),
		store:    store,
		router:   r,
	}
	if cfg.AdminToken != "" {
		s.admin = auth.StaticToken{Token: cfg.AdminToken}
	}
	s.registerRoutes()
	return s, nil
}

func (s *Service) NodeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Service) Kind() string {
	return "identd"
}

func (s *Service) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Service) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"service": s.Kind(),
			"node_id": s.NodeID(),
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/v1/node/id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"node_id": s.NodeID(),
			"kind":    s.Kind(),
		})
	})

	admin := s.router.Group("/v1/node", auth.Middleware(s.admin))
	admin.POST("/id/rotate", func(c *gin.Context) {
		id, err := s.store.Rotate()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		s.mu.Lock()
		previous := s.id
		s.id = id
		s.mu.Unlock()
		log.Info().Str("previous", previous).Str("node_id", id).Msg("node identity rotated")
		c.JSON(http.StatusOK, gin.H{"node_id": id, "previous": previous})
	})
}

// Run serves the management API until ctx is canceled, then shuts down
// gracefully.
func (s *Service) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Str("node_id", s.NodeID()).Msg("identd serving")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost", "http://127.0.0.1"}
	}
	return origins
}
