package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Methods accepted on the payment desk.
const (
	MethodCash         = "Cash"
	MethodBankTransfer = "Bank Transfer"
	MethodPOS          = "POS"
	MethodCheque       = "Cheque"
)

// ValidMethod reports whether the given method is one of the accepted values.
func ValidMethod(method string) bool {
	switch method {
	case MethodCash, MethodBankTransfer, MethodPOS, MethodCheque:
		return true
	default:
		return false
	}
}

// Payment is one money receipt applied against an invoice. Amounts are in
// kobo. BalanceBefore and BalanceAfter snapshot the invoice outstanding
// balance around this payment so each receipt reads as a ledger line.
type Payment struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	InvoiceID     snowflake.ID `json:"invoice_id" gorm:"index"`
	ReceiptNumber string       `json:"receipt_number" gorm:"uniqueIndex"`
	Amount        int64        `json:"amount"`
	PaymentMethod string       `json:"payment_method"`
	Reference     string       `json:"reference"`
	Notes         string       `json:"notes"`
	ReceivedBy    string       `json:"received_by"`
	Position      string       `json:"position"`
	DateReceived  time.Time    `json:"date_received"`
	BalanceBefore int64        `json:"balance_before"`
	BalanceAfter  int64        `json:"balance_after"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
