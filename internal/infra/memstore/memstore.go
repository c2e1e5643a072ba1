// Package memstore is an in-memory implementation of the workflow
// repositories with the same conditional-write semantics as the postgres
// store. It backs no-db mode and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"avenant/internal/domain"
	"avenant/internal/usecase"

	"github.com/google/uuid"
)

type Store struct {
	mu         sync.Mutex
	offers     map[string]domain.SupplierOffer
	avenants   map[string]domain.Avenant
	signatures map[string][]domain.AvenantSignature
	comments   map[string][]domain.OfferComment
	refSeq     map[string]int64
}

func New() *Store {
	return &Store{
		offers:     make(map[string]domain.SupplierOffer),
		avenants:   make(map[string]domain.Avenant),
		signatures: make(map[string][]domain.AvenantSignature),
		comments:   make(map[string][]domain.OfferComment),
		refSeq:     make(map[string]int64),
	}
}

func (s *Store) Create(ctx context.Context, offer domain.SupplierOffer) (domain.SupplierOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	}
	if offer.RootID == "" {
		offer.RootID = offer.ID
	}
	s.offers[offer.ID] = offer
	return offer, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.SupplierOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer, ok := s.offers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := offer
	return &out, nil
}

func (s *Store) TransitionStatus(ctx context.Context, id string, tr usecase.OfferTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer, ok := s.offers[id]
	if !ok {
		return domain.ErrNotFound
	}
	if offer.Status != tr.From {
		return domain.ErrStoreConflict
	}
	applyTransition(&offer, tr)
	s.offers[id] = offer
	return nil
}

func applyTransition(offer *domain.SupplierOffer, tr usecase.OfferTransition) {
	offer.Status = tr.To
	at := tr.At
	switch tr.To {
	case domain.OfferPendingClient:
		offer.SubmittedAt = &at
	case domain.OfferClientApproved:
		offer.ClientApprovedAt = &at
	case domain.OfferArchitectApproved:
		offer.ArchitectApprovedAt = &at
	case domain.OfferFinal:
		offer.FinalizedAt = &at
	case domain.OfferRejected:
		offer.RejectedAt = &at
		offer.RejectionReason = tr.Reason
	}
}

func (s *Store) CreateNextVersion(ctx context.Context, rejectedID string, at time.Time) (domain.SupplierOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.offers[rejectedID]
	if !ok {
		return domain.SupplierOffer{}, domain.ErrNotFound
	}
	if prev.Status != domain.OfferRejected {
		return domain.SupplierOffer{}, domain.ErrStoreConflict
	}
	// Guard against a concurrent resubmission of the same version.
	for _, other := range s.offers {
		if other.RootID == prev.RootID && other.Version > prev.Version {
			return domain.SupplierOffer{}, domain.ErrStoreConflict
		}
	}
	next := domain.SupplierOffer{
		ID:              uuid.NewString(),
		RootID:          prev.RootID,
		ProjectID:       prev.ProjectID,
		LotNumber:       prev.LotNumber,
		SupplierName:    prev.SupplierName,
		SupplierContact: prev.SupplierContact,
		Amount:          prev.Amount,
		Description:     prev.Description,
		Status:          domain.OfferDraft,
		Version:         prev.Version + 1,
		CreatedAt:       at,
	}
	s.offers[next.ID] = next
	return next, nil
}

func (s *Store) GetAvenantByID(ctx context.Context, id string) (*domain.Avenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	av, ok := s.avenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := av
	return &out, nil
}

func (s *Store) GetActiveByOfferID(ctx context.Context, offerID string) (*domain.Avenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, av := range s.avenants {
		if av.OfferID == offerID && av.Status != domain.AvenantCancelled {
			out := av
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) CreateAndFinalizeOffer(ctx context.Context, av domain.Avenant) (domain.Avenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer, ok := s.offers[av.OfferID]
	if !ok {
		return domain.Avenant{}, domain.ErrNotFound
	}
	for _, existing := range s.avenants {
		if existing.OfferID == av.OfferID && existing.Status != domain.AvenantCancelled {
			return domain.Avenant{}, domain.ErrStoreConflict
		}
	}
	if offer.Status != domain.OfferArchitectApproved {
		return domain.Avenant{}, domain.ErrStoreConflict
	}
	seq := s.refSeq[av.ProjectID] + 1
	s.refSeq[av.ProjectID] = seq
	av.ID = uuid.NewString()
	av.Reference = domain.FormatAvenantReference(av.ProjectID, seq)
	s.avenants[av.ID] = av

	applyTransition(&offer, usecase.OfferTransition{From: offer.Status, To: domain.OfferFinal, At: av.GeneratedAt})
	s.offers[av.OfferID] = offer
	return av, nil
}

func (s *Store) AppendAndMarkSigned(ctx context.Context, sig domain.AvenantSignature) (domain.AvenantSignature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	av, ok := s.avenants[sig.AvenantID]
	if !ok {
		return domain.AvenantSignature{}, domain.ErrNotFound
	}
	if av.Status == domain.AvenantSigned {
		return domain.AvenantSignature{}, domain.ErrAlreadySigned
	}
	if av.Status != domain.AvenantPendingSignature {
		return domain.AvenantSignature{}, domain.ErrStoreConflict
	}
	trail := s.signatures[sig.AvenantID]
	sig.ID = uuid.NewString()
	sig.Seq = int64(len(trail)) + 1
	sig.PrevHash = domain.ZeroChainHash
	if len(trail) > 0 {
		sig.PrevHash = trail[len(trail)-1].RecordHash
	}
	sig.RecordHash = domain.SignatureChainHash(sig)
	s.signatures[sig.AvenantID] = append(trail, sig)

	av.Status = domain.AvenantSigned
	s.avenants[sig.AvenantID] = av
	return sig, nil
}

func (s *Store) ListByAvenant(ctx context.Context, avenantID string) ([]domain.AvenantSignature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trail := s.signatures[avenantID]
	out := make([]domain.AvenantSignature, len(trail))
	copy(out, trail)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (s *Store) Append(ctx context.Context, comment domain.OfferComment) (domain.OfferComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment.ID = uuid.NewString()
	s.comments[comment.OfferID] = append(s.comments[comment.OfferID], comment)
	return comment, nil
}

func (s *Store) ListByOffer(ctx context.Context, offerID string) ([]domain.OfferComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.comments[offerID]
	out := make([]domain.OfferComment, len(list))
	copy(out, list)
	return out, nil
}

// Repos bundles the store behind the usecase interfaces.
type Repos struct {
	Offers     usecase.OfferRepository
	Avenants   usecase.AvenantRepository
	Signatures usecase.SignatureRepository
	Comments   usecase.CommentRepository
}

func (s *Store) Repos() Repos {
	return Repos{
		Offers:     s,
		Avenants:   avenantRepo{s},
		Signatures: s,
		Comments:   s,
	}
}

// avenantRepo renames GetAvenantByID to the interface's GetByID without
// colliding with the offer-side GetByID.
type avenantRepo struct{ s *Store }

func (r avenantRepo) GetByID(ctx context.Context, id string) (*domain.Avenant, error) {
	return r.s.GetAvenantByID(ctx, id)
}

func (r avenantRepo) GetActiveByOfferID(ctx context.Context, offerID string) (*domain.Avenant, error) {
	return r.s.GetActiveByOfferID(ctx, offerID)
}

func (r avenantRepo) CreateAndFinalizeOffer(ctx context.Context, av domain.Avenant) (domain.Avenant, error) {
	return r.s.CreateAndFinalizeOffer(ctx, av)
}
