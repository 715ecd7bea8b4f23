package domain

// DeriveStatus returns the status implied by the paid amount. Draft and
// cancelled are manual states and are never overwritten by derivation.
func DeriveStatus(current InvoiceStatus, amountPaid, totalAmount int64) InvoiceStatus {
	if current == StatusDraft || current == StatusCancelled {
		return current
	}
	switch {
	case amountPaid == 0:
		return StatusPending
	case amountPaid < totalAmount:
		return StatusPartial
	default:
		return StatusPaid
	}
}

// CanEdit reports whether the invoice may still be modified.
func (i Invoice) CanEdit() bool {
	return i.Status != StatusPaid && i.Status != StatusCancelled
}

// CanDelete reports whether the invoice may be removed. Any recorded payment
// blocks deletion regardless of the status label.
func (i Invoice) CanDelete() bool {
	return i.Status == StatusDraft || (i.Status == StatusPending && i.AmountPaid == 0)
}

// ValidStatus reports whether raw names a known lifecycle state.
func ValidStatus(raw InvoiceStatus) bool {
	switch raw {
	case StatusDraft, StatusPending, StatusPartial, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// ValidType reports whether raw names a known invoice type.
func ValidType(raw InvoiceType) bool {
	return raw == TypeProforma || raw == TypeAdvanceBill
}
