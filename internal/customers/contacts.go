// Package customers mirrors customer contact and credit data from SAP.
package customers

import (
	"strings"
	"unicode/utf8"

	"github.com/odyssey-erp/sapsync/internal/documents"
)

// MaxPhoneLength bounds stored phone numbers.
const MaxPhoneLength = 30

// Contact is the customer contact data carried on sales orders.
type Contact struct {
	Code      string
	Name      string
	Address   string
	Phone     string
	VATNumber string
}

// ContactsFromOrders extracts one contact per customer code. Later orders win
// for non-empty fields.
func ContactsFromOrders(orders []documents.SalesOrder) []Contact {
	index := make(map[string]int, len(orders))
	out := make([]Contact, 0, len(orders))
	for _, o := range orders {
		code := strings.TrimSpace(o.CustomerCode)
		if code == "" {
			continue
		}
		c := Contact{
			Code:      code,
			Name:      firstNonEmpty(o.CustomerName, code),
			Address:   strings.TrimSpace(o.CustomerAddress),
			Phone:     truncate(strings.TrimSpace(o.CustomerPhone), MaxPhoneLength),
			VATNumber: strings.TrimSpace(o.VATNumber),
		}
		i, seen := index[code]
		if !seen {
			index[code] = len(out)
			out = append(out, c)
			continue
		}
		prev := &out[i]
		if c.Address != "" {
			prev.Address = c.Address
		}
		if c.Phone != "" {
			prev.Phone = c.Phone
		}
		if c.VATNumber != "" {
			prev.VATNumber = c.VATNumber
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
