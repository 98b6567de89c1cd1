package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"compliance-packet/backend/internal/ai"
	"compliance-packet/backend/internal/audit"
	"compliance-packet/backend/internal/auth"
	"compliance-packet/backend/internal/quota"
	"compliance-packet/backend/internal/scoring"
	"compliance-packet/backend/internal/store"
)

// Config defines server dependencies.
type Config struct {
	DBPath          string
	SevereTermsPath string
	AllowedOrigins  []string
	SilentDB        bool
	AIConfig        ai.Config
	DisableAI       bool
	DailyCheckLimit int64
	AuditQueueSize  int
}

// Server wires HTTP handlers with persistence, auth, quota, and scoring.
type Server struct {
	db        *store.Database
	gate      *auth.Gate
	tracker   *quota.Tracker
	assembler *scoring.Assembler
	provider  ai.Scorer
	recorder  *audit.Recorder
	origins   []string
	startedAt time.Time
}

const identityKey = "identity"

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	heuristic, err := scoring.NewHeuristic(cfg.SevereTermsPath)
	if err != nil {
		return nil, fmt.Errorf("heuristic scorer: %w", err)
	}

	var provider ai.Scorer
	if cfg.DisableAI {
		logrus.Info("scoring provider disabled via configuration")
	} else {
		client, err := ai.NewClient(cfg.AIConfig)
		switch {
		case err == nil:
			provider = client
			logrus.Info("scoring provider enabled")
		case errors.Is(err, ai.ErrDisabled):
			logrus.Info("scoring provider disabled - no API key configured, heuristic fallback only")
		default:
			return nil, fmt.Errorf("provider client: %w", err)
		}
	}

	return &Server{
		db:        db,
		gate:      auth.NewGate(db),
		tracker:   quota.NewTracker(cfg.DailyCheckLimit),
		assembler: scoring.NewAssembler(heuristic),
		provider:  provider,
		recorder:  audit.NewRecorder(db, cfg.AuditQueueSize),
		origins:   cfg.AllowedOrigins,
		startedAt: time.Now().UTC(),
	}, nil
}

// Close releases the server's resources, draining pending audit writes.
func (s *Server) Close() error {
	if s.recorder != nil {
		s.recorder.Close()
	}
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.origins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.origins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/health", s.handleStatus)
	r.GET("/status", s.handleStatus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/register", s.handleRegister)

	authed := r.Group("/", s.requireAPIKey())
	{
		authed.POST("/check", s.handleCheck)
		authed.GET("/usage", s.handleUsage)
	}

	return r, nil
}

// requireAPIKey authenticates the bearer token and stores the resolved
// identity on the request context. No packet is produced and no audit row
// is written for rejected requests.
func (s *Server) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := s.gate.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrMissing):
				s.renderError(c, http.StatusUnauthorized, CodeAuthMissingKey, "missing or malformed bearer token")
			case errors.Is(err, auth.ErrInvalid):
				s.renderError(c, http.StatusForbidden, CodeAuthInvalidKey, "invalid api key")
			default:
				logrus.WithError(err).Error("api key lookup failed")
				s.renderError(c, http.StatusInternalServerError, CodeAuthInternalError, "authentication unavailable")
			}
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func (s *Server) identity(c *gin.Context) (auth.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}

func (s *Server) handleStatus(c *gin.Context) {
	dbState := "up"
	status := "ok"
	if err := s.db.Ping(); err != nil {
		logrus.WithError(err).Warn("database ping failed")
		dbState = "down"
		status = "degraded"
	}
	c.JSON(http.StatusOK, StatusResponse{
		Status:    status,
		DB:        dbState,
		Uptime:    time.Since(s.startedAt).Truncate(time.Second).String(),
		Timestamp: time.Now().UTC(),
	})
}
