package provider

import "context"

// SignedUpEvent is emitted after both upstream systems have accepted a
// provider signup (created or matched as duplicate).
type SignedUpEvent struct {
	ProviderID         string `json:"provider_id"`
	PracticeName       string `json:"practice_name"`
	Email              string `json:"email"`
	ClinicalDuplicated bool   `json:"clinical_duplicated"`
	IdentityDuplicated bool   `json:"identity_duplicated"`
}

// EventSink publishes domain events. The outbox-backed implementation
// lives in the infrastructure layer.
type EventSink interface {
	ProviderSignedUp(ctx context.Context, ev SignedUpEvent) error
}
