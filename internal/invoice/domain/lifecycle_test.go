package domain_test

import (
	"testing"

	"github.com/smallbiznis/airbill/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name    string
		current domain.InvoiceStatus
		paid    int64
		total   int64
		want    domain.InvoiceStatus
	}{
		{"unpaid stays pending", domain.StatusPending, 0, 21500, domain.StatusPending},
		{"partial payment", domain.StatusPending, 5000, 21500, domain.StatusPartial},
		{"full payment", domain.StatusPartial, 21500, 21500, domain.StatusPaid},
		{"overshoot still paid", domain.StatusPartial, 30000, 21500, domain.StatusPaid},
		{"draft is preserved", domain.StatusDraft, 5000, 21500, domain.StatusDraft},
		{"cancelled is preserved", domain.StatusCancelled, 21500, 21500, domain.StatusCancelled},
		{"partial falls back to pending when payments vanish", domain.StatusPartial, 0, 21500, domain.StatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.DeriveStatus(tc.current, tc.paid, tc.total)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanEdit(t *testing.T) {
	assert.True(t, domain.Invoice{Status: domain.StatusDraft}.CanEdit())
	assert.True(t, domain.Invoice{Status: domain.StatusPending}.CanEdit())
	assert.True(t, domain.Invoice{Status: domain.StatusPartial}.CanEdit())
	assert.False(t, domain.Invoice{Status: domain.StatusPaid}.CanEdit())
	assert.False(t, domain.Invoice{Status: domain.StatusCancelled}.CanEdit())
}

func TestCanDelete(t *testing.T) {
	assert.True(t, domain.Invoice{Status: domain.StatusDraft}.CanDelete())
	assert.True(t, domain.Invoice{Status: domain.StatusPending, AmountPaid: 0}.CanDelete())
	assert.False(t, domain.Invoice{Status: domain.StatusPending, AmountPaid: 100}.CanDelete())
	assert.False(t, domain.Invoice{Status: domain.StatusPartial}.CanDelete())
	assert.False(t, domain.Invoice{Status: domain.StatusPaid}.CanDelete())
	assert.False(t, domain.Invoice{Status: domain.StatusCancelled}.CanDelete())
}

func TestValidStatusAndType(t *testing.T) {
	assert.True(t, domain.ValidStatus(domain.StatusPartial))
	assert.False(t, domain.ValidStatus("overdue"))
	assert.True(t, domain.ValidType(domain.TypeAdvanceBill))
	assert.False(t, domain.ValidType("credit_note"))
}
