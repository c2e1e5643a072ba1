package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"avenant/internal/domain"
)

func chainedTrail(t *testing.T, avenantID string, n int) []domain.AvenantSignature {
	t.Helper()
	trail := make([]domain.AvenantSignature, 0, n)
	prev := domain.ZeroChainHash
	for i := 1; i <= n; i++ {
		sig := domain.AvenantSignature{
			AvenantID:    avenantID,
			Seq:          int64(i),
			SignerUserID: "u-1",
			SignerEmail:  "claire@example.ch",
			SignerRole:   domain.RoleClient,
			Method:       domain.SignatureQualified,
			Raster:       []byte{byte(i)},
			IPAddress:    "203.0.113.7",
			UserAgent:    "test",
			SignedAt:     testNow,
			Valid:        true,
			PrevHash:     prev,
		}
		sig.RecordHash = domain.SignatureChainHash(sig)
		prev = sig.RecordHash
		trail = append(trail, sig)
	}
	return trail
}

type fixedTrailRepo struct {
	trail   []domain.AvenantSignature
	listErr error
}

func (r *fixedTrailRepo) AppendAndMarkSigned(ctx context.Context, sig domain.AvenantSignature) (domain.AvenantSignature, error) {
	return domain.AvenantSignature{}, domain.ErrAlreadySigned
}

func (r *fixedTrailRepo) ListByAvenant(ctx context.Context, avenantID string) ([]domain.AvenantSignature, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.trail, nil
}

func TestVerifyChainAcceptsIntactTrail(t *testing.T) {
	trail := chainedTrail(t, "avenant-1", 3)
	at := &AuditTrail{Signatures: &fixedTrailRepo{trail: trail}}
	if err := at.VerifyChain(context.Background(), "avenant-1"); err != nil {
		t.Fatalf("intact chain rejected: %v", err)
	}
}

func TestVerifyChainEmptyTrail(t *testing.T) {
	at := &AuditTrail{Signatures: &fixedTrailRepo{}}
	if err := at.VerifyChain(context.Background(), "avenant-1"); err != nil {
		t.Fatalf("empty trail: %v", err)
	}
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	trail := chainedTrail(t, "avenant-1", 3)
	trail[1].IPAddress = "10.0.0.1" // retroactive edit
	at := &AuditTrail{Signatures: &fixedTrailRepo{trail: trail}}

	err := at.VerifyChain(context.Background(), "avenant-1")
	if !errors.Is(err, domain.ErrTrailTampered) {
		t.Fatalf("tampering not reported as such: %v", err)
	}
	if !strings.Contains(err.Error(), "seq 2") {
		t.Fatalf("tampering not pinned to seq 2: %v", err)
	}
}

func TestVerifyChainDetectsRemovedRecord(t *testing.T) {
	trail := chainedTrail(t, "avenant-1", 3)
	trail = append(trail[:1], trail[2]) // drop seq 2
	at := &AuditTrail{Signatures: &fixedTrailRepo{trail: trail}}

	if err := at.VerifyChain(context.Background(), "avenant-1"); !errors.Is(err, domain.ErrTrailTampered) {
		t.Fatalf("removed record went undetected: %v", err)
	}
}

func TestVerifyChainDetectsReorderedRecords(t *testing.T) {
	trail := chainedTrail(t, "avenant-1", 2)
	trail[0], trail[1] = trail[1], trail[0]
	at := &AuditTrail{Signatures: &fixedTrailRepo{trail: trail}}

	if err := at.VerifyChain(context.Background(), "avenant-1"); !errors.Is(err, domain.ErrTrailTampered) {
		t.Fatalf("reordered records went undetected: %v", err)
	}
}

func TestVerifyChainSurfacesStoreFailure(t *testing.T) {
	storeErr := errors.New("db unavailable")
	at := &AuditTrail{Signatures: &fixedTrailRepo{listErr: storeErr}}

	err := at.VerifyChain(context.Background(), "avenant-1")
	if !errors.Is(err, storeErr) {
		t.Fatalf("store failure not surfaced: %v", err)
	}
	if errors.Is(err, domain.ErrTrailTampered) {
		t.Fatal("store failure must not read as tampering")
	}
}
