package invoice_test

import (
	"bytes"
	"testing"
	"time"

	"bevera/pkg/invoice"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFRenderer_Render(t *testing.T) {
	r := invoice.NewPDFRenderer("Bevera")
	now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	out, err := r.Render(invoice.Document{
		Number:        42,
		IssuedAt:      now,
		OrderedAt:     now.Add(-time.Hour),
		Customer:      "Ana Kovač",
		Email:         "ana@example.com",
		PaymentMethod: "card",
		PaymentStatus: "Paid",
		Lines: []invoice.Line{
			{Name: "Mineral water 1.5l", Quantity: 3, UnitPrice: decimal.RequireFromString("0.99"), Total: decimal.RequireFromString("2.97")},
		},
		Total: decimal.RequireFromString("2.97"),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", r.ContentType())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Invoice_17.pdf", invoice.FileName(17))
}
