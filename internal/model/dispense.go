package model

import (
	"time"

	"github.com/google/uuid"
)

type DispenseStatus string

// Fulfillment is all-or-nothing: a record is either fully dispensed or not
// mutated at all, so there is no partial overall status.
const (
	DispenseStatusPending     DispenseStatus = "Pending"
	DispenseStatusProcessing  DispenseStatus = "Processing"
	DispenseStatusReady       DispenseStatus = "Ready"
	DispenseStatusDispensed   DispenseStatus = "Dispensed"
	DispenseStatusCancelled   DispenseStatus = "Cancelled"
	DispenseStatusNoInventory DispenseStatus = "No-Inventory"
)

type DispenseLineStatus string

const (
	DispenseLineStatusPending   DispenseLineStatus = "Pending"
	DispenseLineStatusDispensed DispenseLineStatus = "Dispensed"
)

// DispenseLine tracks fulfillment of one inventory-backed prescription item.
type DispenseLine struct {
	ID                uuid.UUID          `db:"id" json:"id"`
	DispenseID        uuid.UUID          `db:"dispense_id" json:"dispense_id"`
	MedicationID      uuid.UUID          `db:"medication_id" json:"medication_id"`
	Quantity          int                `db:"quantity" json:"quantity"`
	DispensedQuantity int                `db:"dispensed_quantity" json:"dispensed_quantity"`
	Instructions      string             `db:"instructions" json:"instructions,omitempty"`
	Status            DispenseLineStatus `db:"status" json:"status"`
}

type MedicationDispense struct {
	Base
	PrescriptionID uuid.UUID      `db:"prescription_id" json:"prescription_id"`
	PatientID      uuid.UUID      `db:"patient_id" json:"patient_id"`
	Lines          []DispenseLine `db:"-" json:"lines"`
	Status         DispenseStatus `db:"status" json:"status"`
	DispensedBy    *uuid.UUID     `db:"dispensed_by" json:"dispensed_by,omitempty"`
	DispensedAt    *time.Time     `db:"dispensed_at" json:"dispensed_at,omitempty"`
	Notes          string         `db:"notes" json:"notes,omitempty"`
	TotalCost      float64        `db:"total_cost" json:"total_cost"`
}

type FulfillDispenseRequest struct {
	Notes string `json:"notes"`
}
