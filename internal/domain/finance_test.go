package domain

import "testing"

func TestClassifyAvenant(t *testing.T) {
	cases := []struct {
		amount int64
		want   AvenantType
	}{
		{0, AvenantSimple},
		{1_000_00, AvenantSimple},
		{1_000_01, AvenantDetailed},
		{5_000_00, AvenantDetailed},
		{10_000_00, AvenantDetailed},
		{10_000_01, AvenantLegal},
		{12_000_00, AvenantLegal},
	}
	for _, tc := range cases {
		if got := ClassifyAvenant(tc.amount); got != tc.want {
			t.Errorf("ClassifyAvenant(%d) = %s, want %s", tc.amount, got, tc.want)
		}
	}
}

func TestVATAmount(t *testing.T) {
	// CHF 12'000.00 at 8.1% = CHF 972.00
	if got := VATAmount(1_200_000, 810); got != 97_200 {
		t.Fatalf("VATAmount(1200000, 810) = %d, want 97200", got)
	}
	if got := TotalWithVAT(1_200_000, 810); got != 1_297_200 {
		t.Fatalf("TotalWithVAT(1200000, 810) = %d, want 1297200", got)
	}
	// Half-up rounding at the rappen: 0.57 * 8.1% = 0.04617 -> 5 rappen? No:
	// 57 * 810 = 46170 -> (46170+5000)/10000 = 5.
	if got := VATAmount(57, 810); got != 5 {
		t.Fatalf("VATAmount(57, 810) = %d, want 5", got)
	}
	if got := VATAmount(0, 810); got != 0 {
		t.Fatalf("VATAmount(0, 810) = %d, want 0", got)
	}
}

func TestRequiresQualifiedSignature(t *testing.T) {
	if RequiresQualifiedSignature(5_000_00) {
		t.Fatal("5000.00 must not require qualified signature")
	}
	if !RequiresQualifiedSignature(5_000_01) {
		t.Fatal("5000.01 must require qualified signature")
	}
}

func TestOfferTransitionTable(t *testing.T) {
	all := []OfferStatus{OfferDraft, OfferPendingClient, OfferClientApproved, OfferArchitectApproved, OfferFinal, OfferRejected}
	allowed := map[[2]OfferStatus]bool{
		{OfferDraft, OfferPendingClient}:              true,
		{OfferPendingClient, OfferClientApproved}:     true,
		{OfferPendingClient, OfferRejected}:           true,
		{OfferClientApproved, OfferArchitectApproved}: true,
		{OfferClientApproved, OfferRejected}:          true,
		{OfferArchitectApproved, OfferFinal}:          true,
		{OfferArchitectApproved, OfferRejected}:       true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]OfferStatus{from, to}]
			if got := CanTransitionOffer(from, to); got != want {
				t.Errorf("CanTransitionOffer(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}
