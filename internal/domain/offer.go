package domain

import "time"

type OfferStatus string

const (
	OfferDraft             OfferStatus = "draft"
	OfferPendingClient     OfferStatus = "pending_client"
	OfferClientApproved    OfferStatus = "client_approved"
	OfferArchitectApproved OfferStatus = "architect_approved"
	OfferFinal             OfferStatus = "final"
	OfferRejected          OfferStatus = "rejected"
)

type ActorRole string

const (
	RoleClient     ActorRole = "client"
	RolePromoter   ActorRole = "promoter"
	RoleArchitect  ActorRole = "architect"
	RoleContractor ActorRole = "contractor"
)

func (r ActorRole) Known() bool {
	switch r {
	case RoleClient, RolePromoter, RoleArchitect, RoleContractor:
		return true
	}
	return false
}

// SupplierOffer is one version of a proposed change for a lot. Rejection is
// terminal for a version; resubmission creates the next version with the same
// RootID.
type SupplierOffer struct {
	ID              string
	RootID          string
	ProjectID       string
	LotNumber       string
	SupplierName    string
	SupplierContact string
	Amount          int64 // rappen
	Description     string
	Status          OfferStatus
	Version         int

	SubmittedAt         *time.Time
	ClientApprovedAt    *time.Time
	ArchitectApprovedAt *time.Time
	RejectedAt          *time.Time
	FinalizedAt         *time.Time
	RejectionReason     string

	CreatedAt time.Time
}

// offerTransitions is the closed transition table. Any pair not listed here
// fails with ErrInvalidTransition.
var offerTransitions = map[OfferStatus]map[OfferStatus]bool{
	OfferDraft: {
		OfferPendingClient: true,
	},
	OfferPendingClient: {
		OfferClientApproved: true,
		OfferRejected:       true,
	},
	OfferClientApproved: {
		OfferArchitectApproved: true,
		OfferRejected:          true,
	},
	OfferArchitectApproved: {
		OfferFinal:    true,
		OfferRejected: true,
	},
}

func CanTransitionOffer(from, to OfferStatus) bool {
	return offerTransitions[from][to]
}

type OfferComment struct {
	ID         string
	OfferID    string
	AuthorID   string
	AuthorRole ActorRole
	Body       string
	CreatedAt  time.Time
}
