package model

import "time"

// ValidMedicationForms lists accepted dosage forms.
var ValidMedicationForms = []string{
	"Tablet", "Capsule", "Liquid", "Injection", "Cream",
	"Ointment", "Drops", "Inhaler", "Patch", "Other",
}

func ValidMedicationForm(f string) bool {
	for _, v := range ValidMedicationForms {
		if f == v {
			return true
		}
	}
	return false
}

type Medication struct {
	Base
	Name          string    `db:"name" json:"name"`
	GenericName   string    `db:"generic_name" json:"generic_name"`
	Description   string    `db:"description" json:"description,omitempty"`
	Category      string    `db:"category" json:"category"`
	Form          string    `db:"form" json:"form"`
	StrengthValue float64   `db:"strength_value" json:"strength_value"`
	StrengthUnit  string    `db:"strength_unit" json:"strength_unit"`
	Manufacturer  string    `db:"manufacturer" json:"manufacturer,omitempty"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	StockUnit     string    `db:"stock_unit" json:"stock_unit"`
	BatchNumber   string    `db:"batch_number" json:"batch_number,omitempty"`
	ExpiryDate    time.Time `db:"expiry_date" json:"expiry_date"`
	ReorderLevel  int       `db:"reorder_level" json:"reorder_level"`
	Price         float64   `db:"price" json:"price"`
	IsAvailable   bool      `db:"is_available" json:"is_available"`
}

type CreateMedicationRequest struct {
	Name          string    `json:"name" binding:"required,max=100"`
	GenericName   string    `json:"generic_name" binding:"required,max=100"`
	Description   string    `json:"description"`
	Category      string    `json:"category" binding:"required"`
	Form          string    `json:"form" binding:"required"`
	StrengthValue float64   `json:"strength_value" binding:"required,gt=0"`
	StrengthUnit  string    `json:"strength_unit" binding:"required"`
	Manufacturer  string    `json:"manufacturer"`
	StockQuantity int       `json:"stock_quantity" binding:"required,gte=0"`
	StockUnit     string    `json:"stock_unit"`
	BatchNumber   string    `json:"batch_number"`
	ExpiryDate    time.Time `json:"expiry_date" binding:"required"`
	ReorderLevel  int       `json:"reorder_level"`
	Price         float64   `json:"price" binding:"required,gte=0"`
}

type UpdateMedicationRequest struct {
	Description   *string    `json:"description"`
	Category      *string    `json:"category"`
	StockQuantity *int       `json:"stock_quantity"`
	BatchNumber   *string    `json:"batch_number"`
	ExpiryDate    *time.Time `json:"expiry_date"`
	ReorderLevel  *int       `json:"reorder_level"`
	Price         *float64   `json:"price"`
	IsAvailable   *bool      `json:"is_available"`
}
