package usecase

import (
	"context"
	"errors"
	"fmt"

	"avenant/internal/domain"
)

// AuditTrail is the read side of the signature ledger. Records can only be
// enumerated chronologically; nothing here (or anywhere else) mutates them.
type AuditTrail struct {
	Signatures SignatureRepository
}

func (t *AuditTrail) List(ctx context.Context, avenantID string) ([]domain.AvenantSignature, error) {
	if t.Signatures == nil {
		return nil, errors.New("signature repository required")
	}
	return t.Signatures.ListByAvenant(ctx, avenantID)
}

// VerifyChain recomputes the hash chain over an avenant's trail and reports
// the first divergence, wrapped in ErrTrailTampered. A store failure is
// returned as is; it says nothing about the trail's integrity.
func (t *AuditTrail) VerifyChain(ctx context.Context, avenantID string) error {
	sigs, err := t.List(ctx, avenantID)
	if err != nil {
		return err
	}
	expectedSeq := int64(1)
	prevHash := domain.ZeroChainHash
	for _, sig := range sigs {
		if sig.AvenantID != avenantID {
			return fmt.Errorf("%w: avenant mismatch at seq %d", domain.ErrTrailTampered, sig.Seq)
		}
		if sig.Seq != expectedSeq {
			return fmt.Errorf("%w: expected seq %d got %d", domain.ErrTrailTampered, expectedSeq, sig.Seq)
		}
		if sig.PrevHash != prevHash {
			return fmt.Errorf("%w: prev hash mismatch at seq %d", domain.ErrTrailTampered, sig.Seq)
		}
		if sig.SignedAt.IsZero() {
			return fmt.Errorf("%w: missing signed_at at seq %d", domain.ErrTrailTampered, sig.Seq)
		}
		if got := domain.SignatureChainHash(sig); got != sig.RecordHash {
			return fmt.Errorf("%w: record hash mismatch at seq %d", domain.ErrTrailTampered, sig.Seq)
		}
		prevHash = sig.RecordHash
		expectedSeq++
	}
	return nil
}
