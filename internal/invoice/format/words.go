// Package format renders ledger amounts for presentation. Everything here
// is pure and deterministic.
package format

import (
	"fmt"
	"strings"
)

var (
	ones  = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}
	tens  = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
	teens = []string{"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
)

// AmountInWords spells out an amount of kobo as Naira and Kobo, the phrasing
// printed on invoices and receipts.
func AmountInWords(amount int64) string {
	if amount == 0 {
		return "Zero Naira Only"
	}

	naira := amount / 100
	kobo := amount % 100

	result := spellNumber(naira) + " Naira"
	if kobo > 0 {
		result += " and " + spellNumber(kobo) + " Kobo"
	}
	return result + " Only"
}

// Currency formats kobo as a Naira amount with thousands separators,
// e.g. 2150000 -> "₦21,500.00".
func Currency(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	naira := amount / 100
	kobo := amount % 100
	return fmt.Sprintf("%s₦%s.%02d", sign, groupThousands(naira), kobo)
}

func spellNumber(n int64) string {
	if n == 0 {
		return "Zero"
	}

	billion := n / 1_000_000_000
	million := (n % 1_000_000_000) / 1_000_000
	thousand := (n % 1_000_000) / 1_000
	remainder := n % 1_000

	var parts []string
	if billion > 0 {
		parts = append(parts, spellBelowThousand(billion)+" Billion")
	}
	if million > 0 {
		parts = append(parts, spellBelowThousand(million)+" Million")
	}
	if thousand > 0 {
		parts = append(parts, spellBelowThousand(thousand)+" Thousand")
	}
	if remainder > 0 {
		parts = append(parts, spellBelowThousand(remainder))
	}
	return strings.Join(parts, " ")
}

func spellBelowThousand(n int64) string {
	switch {
	case n < 10:
		return ones[n]
	case n < 20:
		return teens[n-10]
	case n < 100:
		out := tens[n/10]
		if n%10 > 0 {
			out += " " + ones[n%10]
		}
		return out
	default:
		out := ones[n/100] + " Hundred"
		if n%100 > 0 {
			out += " and " + spellBelowThousand(n%100)
		}
		return out
	}
}

func groupThousands(n int64) string {
	raw := fmt.Sprintf("%d", n)
	if len(raw) <= 3 {
		return raw
	}

	var groups []string
	for len(raw) > 3 {
		groups = append([]string{raw[len(raw)-3:]}, groups...)
		raw = raw[:len(raw)-3]
	}
	return raw + "," + strings.Join(groups, ",")
}
