// Package bills stores the bills clinicians assemble from extracted codes.
package bills

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("bill not found")

// LineCode is one billed code on an item.
type LineCode struct {
	Code        string  `json:"code" validate:"required"`
	Description string  `json:"description" validate:"required"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
	Unit        int     `json:"unit" validate:"gte=0"`
}

// Item groups the codes billed for one clinical note.
type Item struct {
	Note  string     `json:"note" validate:"required"`
	Codes []LineCode `json:"codes" validate:"dive"`
}

type Bill struct {
	ID             uuid.UUID `json:"id"`
	Date           string    `json:"date" validate:"required,datetime=2006-01-02"`
	Time           string    `json:"time" validate:"required,datetime=15:04"`
	DoctorName     string    `json:"doctorName" validate:"required"`
	DoctorEmail    string    `json:"doctorEmail" validate:"required,email"`
	DoctorHospital string    `json:"doctorHospital" validate:"required"`
	Patient        string    `json:"patient" validate:"required"`
	Items          []Item    `json:"items" validate:"required,min=1,dive"`
}

// Codes lists every code on the bill in item order.
func (b Bill) Codes() []string {
	var out []string
	for _, it := range b.Items {
		for _, c := range it.Codes {
			out = append(out, c.Code)
		}
	}
	return out
}

// Total is the sum of unitPrice * unit over every code.
func (b Bill) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range b.Items {
		for _, c := range it.Codes {
			total = total.Add(decimal.NewFromFloat(c.UnitPrice).Mul(decimal.NewFromInt(int64(c.Unit))))
		}
	}
	return total
}

// Summary is the list view of a bill.
type Summary struct {
	ID      uuid.UUID `json:"id"`
	Date    string    `json:"date"`
	Time    string    `json:"time"`
	Doctor  string    `json:"doctor"`
	Patient string    `json:"patient"`
	Notes   string    `json:"notes"`
	Codes   string    `json:"codes"`
	Total   string    `json:"total"`
}

func (b Bill) Summary() Summary {
	s := Summary{
		ID:      b.ID,
		Date:    b.Date,
		Time:    b.Time,
		Doctor:  b.DoctorName,
		Patient: b.Patient,
		Codes:   strings.Join(b.Codes(), ", "),
		Total:   b.Total().StringFixed(2),
	}
	if len(b.Items) > 0 {
		s.Notes = b.Items[0].Note
	}
	return s
}

// Store persists bills.
type Store interface {
	Create(ctx context.Context, b Bill) (Bill, error)
	List(ctx context.Context) ([]Bill, error)
	Get(ctx context.Context, id uuid.UUID) (Bill, error)
	Update(ctx context.Context, id uuid.UUID, b Bill) (Bill, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
