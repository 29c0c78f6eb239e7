package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatusForwardOnly(t *testing.T) {
	assert.True(t, PaymentStatusUnpaid.CanTransitionTo(PaymentStatusPartiallyPaid))
	assert.True(t, PaymentStatusUnpaid.CanTransitionTo(PaymentStatusPaid))
	assert.True(t, PaymentStatusPartiallyPaid.CanTransitionTo(PaymentStatusPaid))
	assert.True(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusPaid))

	assert.False(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusPartiallyPaid))
	assert.False(t, PaymentStatusPaid.CanTransitionTo(PaymentStatusUnpaid))
	assert.False(t, PaymentStatusPartiallyPaid.CanTransitionTo(PaymentStatusUnpaid))
}

func TestValidPaymentMethod(t *testing.T) {
	for _, m := range ValidPaymentMethods {
		assert.True(t, ValidPaymentMethod(m), m)
	}
	assert.False(t, ValidPaymentMethod("IOU"))
	assert.False(t, ValidPaymentMethod(""))
	assert.False(t, ValidPaymentMethod("cash"))
}
