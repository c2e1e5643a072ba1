package domain

// Monetary amounts are carried in rappen (int64 minor units). Classification
// thresholds are defined in whole francs.
const (
	RappenPerFranc = 100

	LegalThreshold     = 10_000 * RappenPerFranc
	DetailedThreshold  = 1_000 * RappenPerFranc
	QualifiedThreshold = 5_000 * RappenPerFranc

	DefaultVATRateBP = 810 // 8.1%
)

// VATAmount computes amount * rate with half-up rounding to the rappen.
// rateBP is in basis points (810 = 8.1%).
func VATAmount(amount, rateBP int64) int64 {
	if amount == 0 || rateBP == 0 {
		return 0
	}
	product := amount * rateBP
	if product >= 0 {
		return (product + 5_000) / 10_000
	}
	return (product - 5_000) / 10_000
}

func TotalWithVAT(amount, rateBP int64) int64 {
	return amount + VATAmount(amount, rateBP)
}

// ClassifyAvenant derives the avenant type from the base amount.
func ClassifyAvenant(amount int64) AvenantType {
	switch {
	case amount > LegalThreshold:
		return AvenantLegal
	case amount > DetailedThreshold:
		return AvenantDetailed
	default:
		return AvenantSimple
	}
}

func RequiresQualifiedSignature(amount int64) bool {
	return amount > QualifiedThreshold
}
