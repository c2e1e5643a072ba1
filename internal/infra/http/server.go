package http

import (
	"net/http"
	"time"

	"avenant/internal/config"
	"avenant/internal/domain"
	"avenant/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg config.Config
	r   *gin.Engine

	offers    *usecase.OfferApproval
	generator *usecase.AvenantGenerator
	collector *usecase.SignatureCollector
	trail     *usecase.AuditTrail

	authenticator domain.Authenticator
	authorizer    domain.Authorizer

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration
}

type ServerDeps struct {
	Offers    *usecase.OfferApproval
	Generator *usecase.AvenantGenerator
	Collector *usecase.SignatureCollector
	Trail     *usecase.AuditTrail

	Authenticator domain.Authenticator
	Authorizer    domain.Authorizer
	RateLimiter   domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:       cfg,
		r:         r,
		offers:    deps.Offers,
		generator: deps.Generator,
		collector: deps.Collector,
		trail:     deps.Trail,

		authenticator: deps.Authenticator,
		authorizer:    deps.Authorizer,

		rateLimiter:       deps.RateLimiter,
		rateLimitRequests: cfg.RateLimitRequests,
		rateLimitWindow:   time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/offers", s.handleCreateOffer)
		v1.GET("/offers/:offer_id", s.handleGetOffer)
		v1.POST("/offers/:offer_id/submit", s.handleSubmitOffer)
		v1.POST("/offers/:offer_id/approve-client", s.handleApproveByClient)
		v1.POST("/offers/:offer_id/approve-architect", s.handleApproveByArchitect)
		v1.POST("/offers/:offer_id/reject", s.handleRejectOffer)
		v1.POST("/offers/:offer_id/resubmit", s.handleResubmitOffer)
		v1.POST("/offers/:offer_id/comments", s.handleAddComment)
		v1.GET("/offers/:offer_id/comments", s.handleListComments)

		v1.POST("/offers/:offer_id/avenant", s.handleGenerateAvenant)
		v1.GET("/avenants/:avenant_id", s.handleGetAvenant)
		v1.POST("/avenants/:avenant_id/sign", s.handleSignAvenant)
		v1.GET("/avenants/:avenant_id/signatures", s.handleListSignatures)
		v1.GET("/avenants/:avenant_id/signatures/verify", s.handleVerifyTrail)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

func (s *Server) Handler() http.Handler {
	return s.r
}
