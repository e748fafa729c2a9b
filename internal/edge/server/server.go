package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"

	"github.com/pickslab/picks-edge/internal/attention"
	"github.com/pickslab/picks-edge/internal/chain"
	"github.com/pickslab/picks-edge/internal/poolclaim"
	"github.com/pickslab/picks-edge/internal/reconcile"
	"github.com/pickslab/picks-edge/pkg/config"
	"github.com/pickslab/picks-edge/pkg/logger"
	"github.com/pickslab/picks-edge/pkg/replycache"
)

// Server hosts the Picks edge functions over one shared SQLite store.
type Server struct {
	cfg        *config.Config
	store      *Store
	reconciler *reconcile.Reconciler
	claimer    *poolclaim.Claimer
	checker    *attention.Checker
	cache      *replycache.Store
	refresh    *resty.Client
	hub        *tradeHub
}

func New(cfg *config.Config) (*Server, error) {
	store, err := OpenStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		store:      store,
		reconciler: reconcile.New(chain.NewClient(cfg.Chain), store),
		hub:        newTradeHub(),
	}

	if cfg.Refresh.BaseURL != "" {
		s.refresh = resty.New().
			SetBaseURL(cfg.Refresh.BaseURL).
			SetTimeout(cfg.Refresh.Timeout)
	}

	if cfg.Claims.PoolServiceURL != "" {
		s.claimer, err = poolclaim.New(cfg.Claims)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	if cfg.X.BearerToken != "" {
		var cache *replycache.Store
		if cfg.X.CachePath != "" {
			cache, err = replycache.Open(cfg.X.CachePath)
			if err != nil {
				logger.Warnf("reply cache disabled: %v", err)
				cache = nil
			}
		}
		s.cache = cache
		s.checker = attention.New(cfg.X, cache)
	}

	go s.hub.run()
	return s, nil
}

func (s *Server) Close() error {
	s.hub.stop()
	if s.cache != nil {
		_ = s.cache.Close()
	}
	return s.store.Close()
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	fns := r.Group("/functions")
	fns.POST("/creator-fee-tracker", s.wrap(s.handleCreatorFeeTracker))
	fns.POST("/claim-fees", s.wrap(s.handleClaimFees))
	fns.POST("/claim-attention-eligibility", s.wrap(s.handleClaimAttentionEligibility))
	fns.POST("/update-pick-volume", s.wrap(s.handleUpdatePickVolume))
	fns.POST("/update-user-volume", s.wrap(s.handleUpdateUserVolume))

	r.GET("/ws/trades", s.wrap(s.handleTradeStream))

	return r
}

// wrap adapts plain net/http handlers to gin, keeping handler signatures
// uniform across the package.
func (s *Server) wrap(h func(http.ResponseWriter, *http.Request)) gin.HandlerFunc {
	return func(c *gin.Context) {
		h(c.Writer, c.Request)
	}
}
