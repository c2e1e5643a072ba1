package main

import (
	"context"
	"log"

	"avenant/internal/config"
	"avenant/internal/domain"
	"avenant/internal/infra/auth/token"
	"avenant/internal/infra/db"
	"avenant/internal/infra/events"
	httpinfra "avenant/internal/infra/http"
	"avenant/internal/infra/ipresolver"
	"avenant/internal/infra/memstore"
	"avenant/internal/infra/policy"
	"avenant/internal/infra/ratelimit"
	"avenant/internal/usecase"
)

func main() {
	cfg := config.FromEnv()
	ctx := context.Background()

	var (
		offerRepo     usecase.OfferRepository
		avenantRepo   usecase.AvenantRepository
		signatureRepo usecase.SignatureRepository
		commentRepo   usecase.CommentRepository
	)
	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	if store.DB != nil {
		if err := store.Migrate(); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
		offerRepo = db.NewOfferRepository(store.DB)
		avenantRepo = db.NewAvenantRepository(store.DB)
		signatureRepo = db.NewSignatureRepository(store.DB)
		commentRepo = db.NewCommentRepository(store.DB)
	} else {
		repos := memstore.New().Repos()
		offerRepo = repos.Offers
		avenantRepo = repos.Avenants
		signatureRepo = repos.Signatures
		commentRepo = repos.Comments
	}

	var publisher domain.EventPublisher
	if cfg.RedisAddr != "" {
		publisher = events.NewRedisPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	} else {
		log.Printf("REDIS_ADDR not set; events stay in process.")
		publisher = events.NewMemoryPublisher()
	}

	var limiter domain.RateLimiter
	if cfg.RateLimitRequests > 0 {
		if cfg.RedisAddr != "" {
			limiter, err = ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				log.Fatalf("failed to init rate limiter: %v", err)
			}
		} else {
			limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys})
		}
	}

	var authenticator domain.Authenticator
	if cfg.AuthMode != "none" {
		authenticator, err = token.NewAuthenticator(cfg)
		if err != nil {
			log.Fatalf("failed to init authenticator: %v", err)
		}
	}
	authorizer, err := policy.NewEngine(ctx, cfg.PolicyPath)
	if err != nil {
		log.Fatalf("failed to compile policy: %v", err)
	}

	clock := usecase.RealClock{}
	deps := httpinfra.ServerDeps{
		Offers: &usecase.OfferApproval{
			Offers:   offerRepo,
			Comments: commentRepo,
			Events:   publisher,
			Clock:    clock,
		},
		Generator: &usecase.AvenantGenerator{
			Offers:    offerRepo,
			Avenants:  avenantRepo,
			Events:    publisher,
			Clock:     clock,
			VATRateBP: cfg.VATRateBP,
		},
		Collector: &usecase.SignatureCollector{
			Avenants:   avenantRepo,
			Signatures: signatureRepo,
			Events:     publisher,
			Clock:      clock,
			IP:         ipresolver.New(cfg.IPLookupURL),
		},
		Trail: &usecase.AuditTrail{Signatures: signatureRepo},

		Authenticator: authenticator,
		Authorizer:    authorizer,
		RateLimiter:   limiter,
	}

	srv := httpinfra.NewServerWithDeps(cfg, deps)
	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
