package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"avenant/internal/domain"
)

// SignatureCollector appends a signature record and drives the avenant to its
// terminal signed state. The record write and the status flip are one
// transaction in the store.
type SignatureCollector struct {
	Avenants   AvenantRepository
	Signatures SignatureRepository
	Events     domain.EventPublisher
	Clock      Clock
	IP         IPResolver
}

type SignInput struct {
	AvenantID string
	Signer    domain.SignerIdentity
	Role      domain.ActorRole
	Raster    []byte
	UserAgent string
	RemoteIP  string
}

func (s *SignatureCollector) Sign(ctx context.Context, in SignInput) (domain.AvenantSignature, error) {
	if len(in.Raster) == 0 {
		return domain.AvenantSignature{}, fmt.Errorf("%w: no strokes drawn", domain.ErrEmptySignature)
	}
	if strings.TrimSpace(in.Signer.Name) == "" {
		return domain.AvenantSignature{}, fmt.Errorf("%w: signer name is required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Signer.Email); err != nil {
		return domain.AvenantSignature{}, fmt.Errorf("%w: invalid signer email %q", domain.ErrValidation, in.Signer.Email)
	}
	if !in.Role.Known() {
		return domain.AvenantSignature{}, fmt.Errorf("%w: unknown signer role %q", domain.ErrValidation, in.Role)
	}

	av, err := s.Avenants.GetByID(ctx, in.AvenantID)
	if err != nil {
		return domain.AvenantSignature{}, err
	}
	if err := signableStatus(av.Status); err != nil {
		return domain.AvenantSignature{}, err
	}

	sig := domain.AvenantSignature{
		AvenantID:    av.ID,
		SignerUserID: in.Signer.UserID,
		SignerName:   in.Signer.Name,
		SignerEmail:  in.Signer.Email,
		SignerRole:   in.Role,
		Method:       av.SignatureMethod(),
		Raster:       in.Raster,
		IPAddress:    s.resolveIP(ctx, in.RemoteIP),
		UserAgent:    in.UserAgent,
		SignedAt:     s.Clock.Now(),
		Valid:        true,
	}

	recorded, err := s.Signatures.AppendAndMarkSigned(ctx, sig)
	if errors.Is(err, domain.ErrStoreConflict) {
		// One retry against a fresh status; a concurrent signer winning the
		// race surfaces as AlreadySigned.
		av, rerr := s.Avenants.GetByID(ctx, in.AvenantID)
		if rerr != nil {
			return domain.AvenantSignature{}, rerr
		}
		if serr := signableStatus(av.Status); serr != nil {
			return domain.AvenantSignature{}, serr
		}
		recorded, err = s.Signatures.AppendAndMarkSigned(ctx, sig)
	}
	if err != nil {
		return domain.AvenantSignature{}, err
	}

	if s.Events != nil {
		_ = s.Events.Publish(ctx, domain.Event{
			Type:       domain.EventAvenantSigned,
			AvenantID:  av.ID,
			OfferID:    av.OfferID,
			ProjectID:  av.ProjectID,
			ActorID:    in.Signer.UserID,
			ActorRole:  in.Role,
			OccurredAt: s.Clock.Now(),
			Payload: map[string]any{
				"reference": av.Reference,
				"method":    string(recorded.Method),
			},
		})
	}
	return recorded, nil
}

func signableStatus(status domain.AvenantStatus) error {
	switch status {
	case domain.AvenantPendingSignature:
		return nil
	case domain.AvenantSigned:
		return domain.ErrAlreadySigned
	default:
		return fmt.Errorf("%w: avenant is %s, want %s", domain.ErrInvalidTransition, status, domain.AvenantPendingSignature)
	}
}

func (s *SignatureCollector) resolveIP(ctx context.Context, remoteIP string) string {
	if strings.TrimSpace(remoteIP) != "" {
		return remoteIP
	}
	if s.IP == nil {
		return domain.UnknownIP
	}
	ip, err := s.IP.Resolve(ctx)
	if err != nil || strings.TrimSpace(ip) == "" {
		return domain.UnknownIP
	}
	return ip
}
