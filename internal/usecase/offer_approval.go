package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"avenant/internal/domain"
)

// OfferApproval drives the supplier-offer lifecycle. Every transition is a
// conditional write against the store; two concurrent attempts at the same
// transition end with exactly one success.
type OfferApproval struct {
	Offers   OfferRepository
	Comments CommentRepository
	Events   domain.EventPublisher
	Clock    Clock
}

type CreateOfferInput struct {
	ProjectID       string
	LotNumber       string
	SupplierName    string
	SupplierContact string
	Amount          int64
	Description     string
}

func (s *OfferApproval) Create(ctx context.Context, in CreateOfferInput) (domain.SupplierOffer, error) {
	if strings.TrimSpace(in.ProjectID) == "" {
		return domain.SupplierOffer{}, fmt.Errorf("%w: project_id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(in.LotNumber) == "" {
		return domain.SupplierOffer{}, fmt.Errorf("%w: lot_number is required", domain.ErrValidation)
	}
	if strings.TrimSpace(in.SupplierName) == "" {
		return domain.SupplierOffer{}, fmt.Errorf("%w: supplier_name is required", domain.ErrValidation)
	}
	if in.Amount <= 0 {
		return domain.SupplierOffer{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	offer := domain.SupplierOffer{
		ProjectID:       in.ProjectID,
		LotNumber:       in.LotNumber,
		SupplierName:    in.SupplierName,
		SupplierContact: in.SupplierContact,
		Amount:          in.Amount,
		Description:     in.Description,
		Status:          domain.OfferDraft,
		Version:         1,
		CreatedAt:       s.Clock.Now(),
	}
	return s.Offers.Create(ctx, offer)
}

func (s *OfferApproval) Get(ctx context.Context, offerID string) (*domain.SupplierOffer, error) {
	return s.Offers.GetByID(ctx, offerID)
}

func (s *OfferApproval) SubmitForClientApproval(ctx context.Context, offerID string, actor domain.Principal) (*domain.SupplierOffer, error) {
	offer, err := s.transition(ctx, offerID, domain.OfferPendingClient, "")
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventOfferSubmitted, offer, actor, nil)
	return offer, nil
}

func (s *OfferApproval) ApproveByClient(ctx context.Context, offerID string, actor domain.Principal) (*domain.SupplierOffer, error) {
	offer, err := s.transition(ctx, offerID, domain.OfferClientApproved, "")
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventOfferApproved, offer, actor, map[string]any{"stage": "client"})
	return offer, nil
}

func (s *OfferApproval) ApproveByArchitect(ctx context.Context, offerID string, actor domain.Principal) (*domain.SupplierOffer, error) {
	offer, err := s.transition(ctx, offerID, domain.OfferArchitectApproved, "")
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventOfferApproved, offer, actor, map[string]any{"stage": "architect"})
	return offer, nil
}

func (s *OfferApproval) Reject(ctx context.Context, offerID, reason string, actor domain.Principal) (*domain.SupplierOffer, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
	}
	offer, err := s.transition(ctx, offerID, domain.OfferRejected, reason)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, domain.EventOfferRejected, offer, actor, map[string]any{"reason": reason})
	return offer, nil
}

// Resubmit opens version n+1 in draft for an offer whose current version was
// rejected.
func (s *OfferApproval) Resubmit(ctx context.Context, offerID string, actor domain.Principal) (*domain.SupplierOffer, error) {
	offer, err := s.Offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != domain.OfferRejected {
		return nil, fmt.Errorf("%w: only a rejected offer can be resubmitted (status %s)", domain.ErrInvalidTransition, offer.Status)
	}
	next, err := s.Offers.CreateNextVersion(ctx, offerID, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *OfferApproval) Comment(ctx context.Context, offerID, body string, actor domain.Principal) (domain.OfferComment, error) {
	if strings.TrimSpace(body) == "" {
		return domain.OfferComment{}, fmt.Errorf("%w: comment body is required", domain.ErrValidation)
	}
	if !actor.Role.Known() {
		return domain.OfferComment{}, fmt.Errorf("%w: unknown author role %q", domain.ErrValidation, actor.Role)
	}
	if _, err := s.Offers.GetByID(ctx, offerID); err != nil {
		return domain.OfferComment{}, err
	}
	return s.Comments.Append(ctx, domain.OfferComment{
		OfferID:    offerID,
		AuthorID:   actor.Subject,
		AuthorRole: actor.Role,
		Body:       body,
		CreatedAt:  s.Clock.Now(),
	})
}

func (s *OfferApproval) ListComments(ctx context.Context, offerID string) ([]domain.OfferComment, error) {
	return s.Comments.ListByOffer(ctx, offerID)
}

// transition is the single dispatch point for the state machine. It checks
// the table against a fresh read, applies the conditional write, and retries
// exactly once when the write loses a race to a still-valid predecessor.
func (s *OfferApproval) transition(ctx context.Context, offerID string, to domain.OfferStatus, reason string) (*domain.SupplierOffer, error) {
	for attempt := 0; attempt < 2; attempt++ {
		offer, err := s.Offers.GetByID(ctx, offerID)
		if err != nil {
			return nil, err
		}
		if !domain.CanTransitionOffer(offer.Status, to) {
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, offer.Status, to)
		}
		tr := OfferTransition{From: offer.Status, To: to, At: s.Clock.Now(), Reason: reason}
		err = s.Offers.TransitionStatus(ctx, offerID, tr)
		if err == nil {
			updated, err := s.Offers.GetByID(ctx, offerID)
			if err != nil {
				return nil, err
			}
			return updated, nil
		}
		if !errors.Is(err, domain.ErrStoreConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: transition to %s lost the race twice", domain.ErrStoreConflict, to)
}

func (s *OfferApproval) publish(ctx context.Context, typ domain.EventType, offer *domain.SupplierOffer, actor domain.Principal, payload map[string]any) {
	if s.Events == nil {
		return
	}
	_ = s.Events.Publish(ctx, domain.Event{
		Type:       typ,
		OfferID:    offer.ID,
		ProjectID:  offer.ProjectID,
		ActorID:    actor.Subject,
		ActorRole:  actor.Role,
		OccurredAt: s.Clock.Now(),
		Payload:    payload,
	})
}
