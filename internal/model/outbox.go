package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Domain event types written to the outbox.
const (
	EventAppointmentCreated    = "APPOINTMENT_CREATED"
	EventAppointmentUpdated    = "APPOINTMENT_STATUS_UPDATED"
	EventAppointmentReschedule = "APPOINTMENT_RESCHEDULED"
	EventPrescriptionCreated   = "PRESCRIPTION_CREATED"
	EventInvoiceCreated        = "INVOICE_CREATED"
	EventDispenseFulfilled     = "DISPENSE_FULFILLED"
)

// OutboxEvent is the durable marker for a committed domain write; the
// worker publishes pending events to the broker.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
