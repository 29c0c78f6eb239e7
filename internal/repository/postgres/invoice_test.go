package postgres

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceNumber(t *testing.T) {
	issued := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "INV-26-09-0001", invoiceNumber(issued, 1))
	assert.Equal(t, "INV-26-09-0042", invoiceNumber(issued, 42))
	assert.Equal(t, "INV-26-09-12345", invoiceNumber(issued, 12345))

	december := time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "INV-25-12-0007", invoiceNumber(december, 7))
}

func TestInvoiceNumberOrdering(t *testing.T) {
	issued := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	prev := invoiceNumber(issued, 1)
	for counter := 2; counter < 200; counter++ {
		next := invoiceNumber(issued, counter)
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(assert.AnError))
	assert.False(t, isUniqueViolation(nil))
}
