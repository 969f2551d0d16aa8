package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with organizational significance that
	// must survive indefinitely. Every leadership transition lands here;
	// provenance questions ("who replaced whom, when, why") are answered from
	// the transition ledger, with this stream as the cross-system echo.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging and
	// operational visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Subject   string        `json:"subject"` // person id the action concerns
	Action    string        `json:"action"`
	Reason    string        `json:"reason,omitempty"`
	Detail    string        `json:"detail,omitempty"` // e.g. the role involved
	RequestID string        `json:"request_id,omitempty"`
	ActorID   string        `json:"actor_id,omitempty"`
}

type AuditEvent string

const (
	// Succession events
	EventAppointmentRecorded AuditEvent = "appointment_recorded"
	EventRemovalRecorded     AuditEvent = "removal_recorded"
	EventReplacementRecorded AuditEvent = "replacement_recorded"

	// Directory events
	EventPersonCreated    AuditEvent = "person_created"
	EventPersonUpdated    AuditEvent = "person_updated"
	EventNamahattaCreated AuditEvent = "namahatta_created"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventAppointmentRecorded: CategoryCompliance,
	EventRemovalRecorded:     CategoryCompliance,
	EventReplacementRecorded: CategoryCompliance,

	EventPersonCreated:    CategoryOperations,
	EventPersonUpdated:    CategoryOperations,
	EventNamahattaCreated: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
