package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"avenant/internal/domain"
)

// AvenantGenerator converts an architect-approved offer into its avenant.
// Avenant creation and offer finalization are one transaction in the store;
// the generator never sees one without the other except in the fatal
// inconsistency case, which it surfaces for manual reconciliation.
type AvenantGenerator struct {
	Offers    OfferRepository
	Avenants  AvenantRepository
	Events    domain.EventPublisher
	Clock     Clock
	VATRateBP int64
}

type GenerateInput struct {
	OfferID      string
	Title        string
	Description  string
	Amount       int64
	TypeOverride domain.AvenantType // empty = derive from amount
}

func (g *AvenantGenerator) Generate(ctx context.Context, in GenerateInput, actor domain.Principal) (domain.Avenant, error) {
	if strings.TrimSpace(in.Title) == "" {
		return domain.Avenant{}, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if in.Amount <= 0 {
		return domain.Avenant{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if in.TypeOverride != "" {
		switch in.TypeOverride {
		case domain.AvenantSimple, domain.AvenantDetailed, domain.AvenantLegal:
		default:
			return domain.Avenant{}, fmt.Errorf("%w: unknown avenant type %q", domain.ErrValidation, in.TypeOverride)
		}
	}

	offer, err := g.Offers.GetByID(ctx, in.OfferID)
	if err != nil {
		return domain.Avenant{}, err
	}
	existing, err := g.Avenants.GetActiveByOfferID(ctx, in.OfferID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Avenant{}, err
	}
	if existing != nil {
		if offer.Status != domain.OfferFinal {
			return domain.Avenant{}, fmt.Errorf("%w: avenant %s exists but offer %s is %s; manual reconciliation required",
				domain.ErrInconsistentState, existing.ID, offer.ID, offer.Status)
		}
		return domain.Avenant{}, fmt.Errorf("%w: %s", domain.ErrDuplicateAvenant, existing.Reference)
	}
	if offer.Status != domain.OfferArchitectApproved {
		return domain.Avenant{}, fmt.Errorf("%w: offer is %s, want %s", domain.ErrPreconditionFailed, offer.Status, domain.OfferArchitectApproved)
	}

	rate := g.VATRateBP
	if rate == 0 {
		rate = domain.DefaultVATRateBP
	}
	typ := in.TypeOverride
	if typ == "" {
		typ = domain.ClassifyAvenant(in.Amount)
	}
	av := domain.Avenant{
		OfferID:      offer.ID,
		ProjectID:    offer.ProjectID,
		Title:        in.Title,
		Description:  in.Description,
		Amount:       in.Amount,
		VATRateBP:    rate,
		VATAmount:    domain.VATAmount(in.Amount, rate),
		TotalWithVAT: domain.TotalWithVAT(in.Amount, rate),
		Type:         typ,

		RequiresQualifiedSignature: domain.RequiresQualifiedSignature(in.Amount),

		Status:      domain.AvenantPendingSignature,
		GeneratedAt: g.Clock.Now(),
	}

	created, err := g.Avenants.CreateAndFinalizeOffer(ctx, av)
	if err != nil {
		if errors.Is(err, domain.ErrStoreConflict) {
			// Lost a race: either a concurrent generation won or the offer
			// moved. Re-read to report the accurate failure.
			if dup, dupErr := g.Avenants.GetActiveByOfferID(ctx, in.OfferID); dupErr == nil && dup != nil {
				return domain.Avenant{}, fmt.Errorf("%w: %s", domain.ErrDuplicateAvenant, dup.Reference)
			}
			return domain.Avenant{}, fmt.Errorf("%w: offer left %s during generation", domain.ErrPreconditionFailed, domain.OfferArchitectApproved)
		}
		return domain.Avenant{}, err
	}

	if g.Events != nil {
		_ = g.Events.Publish(ctx, domain.Event{
			Type:       domain.EventAvenantGenerated,
			OfferID:    offer.ID,
			AvenantID:  created.ID,
			ProjectID:  offer.ProjectID,
			ActorID:    actor.Subject,
			ActorRole:  actor.Role,
			OccurredAt: g.Clock.Now(),
			Payload: map[string]any{
				"reference": created.Reference,
				"type":      string(created.Type),
				"total":     created.TotalWithVAT,
			},
		})
	}
	return created, nil
}

func (g *AvenantGenerator) Get(ctx context.Context, avenantID string) (*domain.Avenant, error) {
	return g.Avenants.GetByID(ctx, avenantID)
}
