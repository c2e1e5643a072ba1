package domain

import (
	"fmt"
	"time"
)

type AvenantStatus string

const (
	AvenantDraft            AvenantStatus = "draft"
	AvenantPendingSignature AvenantStatus = "pending_signature"
	AvenantSigned           AvenantStatus = "signed"
	AvenantRejected         AvenantStatus = "rejected"
	AvenantCancelled        AvenantStatus = "cancelled"
)

type AvenantType string

const (
	AvenantSimple   AvenantType = "simple"
	AvenantDetailed AvenantType = "detailed"
	AvenantLegal    AvenantType = "legal"
)

// Avenant is the contract amendment generated from an architect-approved
// offer. Once Status is signed, the financial and descriptive fields are
// immutable.
type Avenant struct {
	ID          string
	OfferID     string
	ProjectID   string
	Reference   string
	Title       string
	Description string

	Amount       int64 // rappen
	VATRateBP    int64 // basis points, e.g. 810 = 8.1%
	VATAmount    int64
	TotalWithVAT int64
	Type         AvenantType

	RequiresQualifiedSignature bool

	Status      AvenantStatus
	GeneratedAt time.Time
}

// FormatAvenantReference builds the human-readable reference allocated per
// project, e.g. AV-4f2a1c09-0007.
func FormatAvenantReference(projectID string, seq int64) string {
	short := projectID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("AV-%s-%04d", short, seq)
}

// SignatureMethod returns the method required for this avenant.
func (a Avenant) SignatureMethod() SignatureMethod {
	if a.RequiresQualifiedSignature {
		return SignatureQualified
	}
	return SignatureElectronic
}
