package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "Unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "Partially Paid"
	PaymentStatusPaid          PaymentStatus = "Paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusUnpaid || s == PaymentStatusPartiallyPaid || s == PaymentStatusPaid
}

// paymentRank orders the forward-only payment progression.
var paymentRank = map[PaymentStatus]int{
	PaymentStatusUnpaid:        0,
	PaymentStatusPartiallyPaid: 1,
	PaymentStatusPaid:          2,
}

// CanTransitionTo enforces Unpaid -> Partially Paid -> Paid with no
// regression.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return paymentRank[next] >= paymentRank[s]
}

// ValidPaymentMethods lists accepted settlement methods.
var ValidPaymentMethods = []string{
	"Cash", "Credit Card", "Debit Card", "Insurance", "Bank Transfer", "Other",
}

func ValidPaymentMethod(m string) bool {
	for _, v := range ValidPaymentMethods {
		if m == v {
			return true
		}
	}
	return false
}

type InvoiceItem struct {
	Description string  `json:"description" binding:"required"`
	Quantity    int     `json:"quantity" binding:"required,gte=1"`
	UnitPrice   float64 `json:"unit_price" binding:"gte=0"`
	Amount      float64 `json:"amount" binding:"gte=0"`
}

type Invoice struct {
	Base
	PatientID      uuid.UUID     `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID     `db:"doctor_id" json:"doctor_id"`
	AppointmentID  uuid.UUID     `db:"appointment_id" json:"appointment_id"`
	InvoiceNumber  string        `db:"invoice_number" json:"invoice_number"`
	DateIssued     time.Time     `db:"date_issued" json:"date_issued"`
	DueDate        time.Time     `db:"due_date" json:"due_date"`
	Items          []InvoiceItem `db:"-" json:"items"`
	SubTotal       float64       `db:"sub_total" json:"sub_total"`
	TaxRate        float64       `db:"tax_rate" json:"tax_rate"`
	TaxAmount      float64       `db:"tax_amount" json:"tax_amount"`
	DiscountAmount float64       `db:"discount_amount" json:"discount_amount"`
	TotalAmount    float64       `db:"total_amount" json:"total_amount"`
	PaymentStatus  PaymentStatus `db:"payment_status" json:"payment_status"`
	PaymentMethod  string        `db:"payment_method" json:"payment_method,omitempty"`
	PaidAmount     float64       `db:"paid_amount" json:"paid_amount"`
	Notes          string        `db:"notes" json:"notes,omitempty"`
}

type CreateInvoiceRequest struct {
	PatientID      uuid.UUID     `json:"patient_id" binding:"required"`
	AppointmentID  uuid.UUID     `json:"appointment_id" binding:"required"`
	Items          []InvoiceItem `json:"items" binding:"required,min=1,dive"`
	SubTotal       float64       `json:"sub_total" binding:"gte=0"`
	TaxRate        float64       `json:"tax_rate" binding:"gte=0"`
	TaxAmount      float64       `json:"tax_amount" binding:"gte=0"`
	DiscountAmount float64       `json:"discount_amount" binding:"gte=0"`
	TotalAmount    float64       `json:"total_amount" binding:"gte=0"`
	DueDate        *time.Time    `json:"due_date"`
	Notes          string        `json:"notes"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus PaymentStatus `json:"payment_status" binding:"required"`
	PaymentMethod string        `json:"payment_method"`
	PaidAmount    *float64      `json:"paid_amount"`
}

// RevenueStats summarizes billing position for the admin dashboard.
type RevenueStats struct {
	TotalRevenue   float64 `json:"total_revenue"`
	PaidRevenue    float64 `json:"paid_revenue"`
	PendingRevenue float64 `json:"pending_revenue"`
	InvoiceCount   int     `json:"invoice_count"`
}
