package domain

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrPreconditionFailed  = errors.New("precondition failed")
	ErrDuplicateAvenant    = errors.New("avenant already exists for offer")
	ErrEmptySignature      = errors.New("empty signature")
	ErrAlreadySigned       = errors.New("avenant already signed")
	ErrStoreConflict       = errors.New("store conflict")
	ErrExternalUnavailable = errors.New("external service unavailable")
	ErrNotFound            = errors.New("not found")

	// ErrTrailTampered marks a signature trail whose recomputed hash chain
	// does not match the stored records.
	ErrTrailTampered = errors.New("signature trail integrity violation")

	// ErrInconsistentState marks a partially applied generation (avenant
	// persisted, offer not finalized). Never retried automatically; requires
	// manual reconciliation.
	ErrInconsistentState = errors.New("inconsistent offer/avenant state")
)
