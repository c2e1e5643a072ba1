package usecase

import (
	"context"
	"time"

	"avenant/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// OfferTransition is one conditional status update. The store applies it only
// when the current status equals From; losing that race yields
// domain.ErrStoreConflict.
type OfferTransition struct {
	From   domain.OfferStatus
	To     domain.OfferStatus
	At     time.Time
	Reason string // reject transitions only
}

type OfferRepository interface {
	Create(ctx context.Context, offer domain.SupplierOffer) (domain.SupplierOffer, error)
	GetByID(ctx context.Context, id string) (*domain.SupplierOffer, error)
	TransitionStatus(ctx context.Context, id string, tr OfferTransition) error
	// CreateNextVersion atomically verifies the source offer is rejected and
	// inserts version n+1 in draft.
	CreateNextVersion(ctx context.Context, rejectedID string, at time.Time) (domain.SupplierOffer, error)
}

type AvenantRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Avenant, error)
	// GetActiveByOfferID returns the non-cancelled avenant for an offer, or
	// domain.ErrNotFound.
	GetActiveByOfferID(ctx context.Context, offerID string) (*domain.Avenant, error)
	// CreateAndFinalizeOffer allocates the per-project reference, inserts the
	// avenant and moves the offer architect_approved -> final in one
	// transaction. Nothing is applied on failure.
	CreateAndFinalizeOffer(ctx context.Context, av domain.Avenant) (domain.Avenant, error)
}

type SignatureRepository interface {
	// AppendAndMarkSigned chains and inserts the signature record and moves
	// the avenant pending_signature -> signed in one transaction.
	AppendAndMarkSigned(ctx context.Context, sig domain.AvenantSignature) (domain.AvenantSignature, error)
	ListByAvenant(ctx context.Context, avenantID string) ([]domain.AvenantSignature, error)
}

type CommentRepository interface {
	Append(ctx context.Context, comment domain.OfferComment) (domain.OfferComment, error)
	ListByOffer(ctx context.Context, offerID string) ([]domain.OfferComment, error)
}

// IPResolver is the external lookup collaborator. Failure degrades to
// domain.UnknownIP at the call site, never blocking a signature.
type IPResolver interface {
	Resolve(ctx context.Context) (string, error)
}
