//go:build integration
// +build integration

package db

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"avenant/internal/domain"
	"avenant/internal/usecase"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN_TEST"))
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	lockTestDB(t, gdb)
	store := &Store{DB: gdb}
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	resetDB(t, gdb)
	return gdb
}

func lockTestDB(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	conn, err := sqlDB.Conn(context.Background())
	if err != nil {
		t.Fatalf("open db conn: %v", err)
	}
	if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_lock(424242421)"); err != nil {
		_ = conn.Close()
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock(424242421)")
		_ = conn.Close()
	})
}

func resetDB(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	for _, table := range []string{
		"avenant_signatures", "avenant_signature_seq",
		"avenants", "avenant_ref_seq",
		"offer_comments", "supplier_offers",
	} {
		if err := gdb.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}

func seedOffer(t *testing.T, gdb *gorm.DB, status domain.OfferStatus) domain.SupplierOffer {
	t.Helper()
	repo := NewOfferRepository(gdb)
	offer, err := repo.Create(context.Background(), domain.SupplierOffer{
		ProjectID:    uuid.NewString(),
		LotNumber:    "210",
		SupplierName: "Menuiserie Blanc SA",
		Amount:       1_200_000,
		Status:       status,
		Version:      1,
		CreatedAt:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	return offer
}

func TestOfferRepository_TransitionStatusCAS(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewOfferRepository(gdb)
	offer := seedOffer(t, gdb, domain.OfferPendingClient)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.TransitionStatus(ctx, offer.ID, usecase.OfferTransition{
				From: domain.OfferPendingClient,
				To:   domain.OfferClientApproved,
				At:   at,
			})
		}(i)
	}
	wg.Wait()

	var ok, conflict int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrStoreConflict):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Fatalf("want one success and one conflict, got %d/%d", ok, conflict)
	}
	got, err := repo.GetByID(ctx, offer.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.OfferClientApproved || got.ClientApprovedAt == nil {
		t.Fatalf("offer after race: %+v", got)
	}
}

func TestAvenantRepository_GenerateIsAtomic(t *testing.T) {
	gdb := setupTestDB(t)
	offers := NewOfferRepository(gdb)
	avenants := NewAvenantRepository(gdb)
	ctx := context.Background()
	offer := seedOffer(t, gdb, domain.OfferArchitectApproved)
	generatedAt := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	av, err := avenants.CreateAndFinalizeOffer(ctx, domain.Avenant{
		OfferID:      offer.ID,
		ProjectID:    offer.ProjectID,
		Title:        "Modification cuisine lot 210",
		Amount:       1_200_000,
		VATRateBP:    810,
		VATAmount:    97_200,
		TotalWithVAT: 1_297_200,
		Type:         domain.AvenantLegal,

		RequiresQualifiedSignature: true,

		Status:      domain.AvenantPendingSignature,
		GeneratedAt: generatedAt,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if av.Reference == "" {
		t.Fatal("no reference allocated")
	}
	got, err := offers.GetByID(ctx, offer.ID)
	if err != nil {
		t.Fatalf("get offer: %v", err)
	}
	if got.Status != domain.OfferFinal || got.FinalizedAt == nil {
		t.Fatalf("offer not finalized with avenant: %+v", got)
	}

	// Second generation for the same offer must fail and change nothing.
	_, err = avenants.CreateAndFinalizeOffer(ctx, domain.Avenant{
		OfferID: offer.ID, ProjectID: offer.ProjectID, Title: "again",
		Amount: 100, VATRateBP: 810, Status: domain.AvenantPendingSignature,
		GeneratedAt: generatedAt,
	})
	if !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("duplicate generation: %v", err)
	}
}

func TestAvenantRepository_SequentialReferences(t *testing.T) {
	gdb := setupTestDB(t)
	avenants := NewAvenantRepository(gdb)
	ctx := context.Background()
	projectID := uuid.NewString()

	var refs []string
	for i := 0; i < 3; i++ {
		offer := seedOffer(t, gdb, domain.OfferArchitectApproved)
		gdb.Model(&SupplierOfferModel{}).Where("id = ?", offer.ID).Update("project_id", projectID)
		av, err := avenants.CreateAndFinalizeOffer(ctx, domain.Avenant{
			OfferID: offer.ID, ProjectID: projectID, Title: "t",
			Amount: 100, VATRateBP: 810, Status: domain.AvenantPendingSignature,
			GeneratedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		refs = append(refs, av.Reference)
	}
	want1 := domain.FormatAvenantReference(projectID, 1)
	want3 := domain.FormatAvenantReference(projectID, 3)
	if refs[0] != want1 || refs[2] != want3 {
		t.Fatalf("references not sequential: %v", refs)
	}
}

func TestSignatureRepository_AppendChainAndTerminalState(t *testing.T) {
	gdb := setupTestDB(t)
	avenants := NewAvenantRepository(gdb)
	sigs := NewSignatureRepository(gdb)
	ctx := context.Background()

	offer := seedOffer(t, gdb, domain.OfferArchitectApproved)
	av, err := avenants.CreateAndFinalizeOffer(ctx, domain.Avenant{
		OfferID: offer.ID, ProjectID: offer.ProjectID, Title: "t",
		Amount: 1_200_000, VATRateBP: 810, VATAmount: 97_200, TotalWithVAT: 1_297_200,
		Type: domain.AvenantLegal, RequiresQualifiedSignature: true,
		Status: domain.AvenantPendingSignature, GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	first, err := sigs.AppendAndMarkSigned(ctx, domain.AvenantSignature{
		AvenantID:    av.ID,
		SignerUserID: "u-1",
		SignerName:   "Claire Dubois",
		SignerEmail:  "claire@example.ch",
		SignerRole:   domain.RoleClient,
		Method:       domain.SignatureQualified,
		Raster:       []byte{0x89, 'P', 'N', 'G'},
		IPAddress:    "203.0.113.7",
		UserAgent:    "test",
		SignedAt:     time.Date(2026, 3, 16, 8, 0, 0, 0, time.UTC),
		Valid:        true,
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if first.Seq != 1 || first.PrevHash != domain.ZeroChainHash {
		t.Fatalf("chain head wrong: %+v", first)
	}
	if first.RecordHash != domain.SignatureChainHash(first) {
		t.Fatal("stored hash does not recompute")
	}

	got, err := avenants.GetByID(ctx, av.ID)
	if err != nil {
		t.Fatalf("get avenant: %v", err)
	}
	if got.Status != domain.AvenantSigned {
		t.Fatalf("avenant status = %s", got.Status)
	}

	// Terminal: a second signing attempt fails and appends nothing.
	_, err = sigs.AppendAndMarkSigned(ctx, first)
	if !errors.Is(err, domain.ErrAlreadySigned) {
		t.Fatalf("second sign: %v", err)
	}
	trail, err := sigs.ListByAvenant(ctx, av.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trail) != 1 {
		t.Fatalf("trail length = %d", len(trail))
	}
}

func TestOfferRepository_CreateNextVersion(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewOfferRepository(gdb)
	ctx := context.Background()
	offer := seedOffer(t, gdb, domain.OfferRejected)

	next, err := repo.CreateNextVersion(ctx, offer.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("next version: %v", err)
	}
	if next.Version != 2 || next.Status != domain.OfferDraft || next.RootID != offer.ID {
		t.Fatalf("next = %+v", next)
	}

	// A second resubmission of the same rejected version loses.
	if _, err := repo.CreateNextVersion(ctx, offer.ID, time.Now().UTC()); !errors.Is(err, domain.ErrStoreConflict) {
		t.Fatalf("double resubmit: %v", err)
	}
}
