package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventOfferSubmitted   EventType = "offer.submitted"
	EventOfferApproved    EventType = "offer.approved"
	EventOfferRejected    EventType = "offer.rejected"
	EventAvenantGenerated EventType = "avenant.generated"
	EventAvenantSigned    EventType = "avenant.signed"
)

// Event is what this subsystem emits for notification/document collaborators.
// Delivery is best effort; publishing never fails a committed transition.
type Event struct {
	Type       EventType      `json:"type"`
	OfferID    string         `json:"offer_id,omitempty"`
	AvenantID  string         `json:"avenant_id,omitempty"`
	ProjectID  string         `json:"project_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	ActorRole  ActorRole      `json:"actor_role,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
