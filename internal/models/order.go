package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is created once by checkout and afterwards only moved through the
// status workflow. Total is a snapshot and never recomputed.
type Order struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	ClientID      string          `json:"client_id" gorm:"size:36;not null;index"`
	Client        *User           `json:"client,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	Status        OrderStatus     `json:"status" gorm:"size:20;not null;index"`
	PaymentStatus PaymentStatus   `json:"payment_status" gorm:"size:20;not null;index"`
	PaymentMethod PaymentMethod   `json:"payment_method" gorm:"size:10;not null"`
	Total         decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`

	FullName string `json:"full_name" gorm:"size:120;not null"`
	Email    string `json:"email" gorm:"size:120;not null"`
	Phone    string `json:"phone,omitempty" gorm:"size:30"`
	Address  string `json:"address,omitempty" gorm:"size:200"`

	// Simulated card payments keep only the holder and the last four digits.
	CardHolder string `json:"card_holder,omitempty" gorm:"size:120"`
	CardLast4  string `json:"card_last4,omitempty" gorm:"size:4"`

	CreatedAt time.Time  `json:"created_at"`
	ChangedAt time.Time  `json:"changed_at" gorm:"index"`
	PaidOn    *time.Time `json:"paid_on,omitempty"`

	InvoiceFileName       string     `json:"invoice_file_name,omitempty" gorm:"size:200"`
	InvoiceStoredFileName string     `json:"-" gorm:"size:200"`
	InvoiceContentType    string     `json:"invoice_content_type,omitempty" gorm:"size:100"`
	InvoiceFileSize       int64      `json:"invoice_file_size,omitempty"`
	InvoiceCreatedAt      *time.Time `json:"invoice_created_at,omitempty"`

	Items         []OrderItem          `json:"items,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	StatusHistory []OrderStatusHistory `json:"status_history,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
}

// BeforeCreate validates the closed enums on the insert path.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if !o.Status.Valid() {
		return fmt.Errorf("invalid order status %q", o.Status)
	}
	if !o.PaymentStatus.Valid() {
		return fmt.Errorf("invalid payment status %q", o.PaymentStatus)
	}
	if !o.PaymentMethod.Valid() {
		return fmt.Errorf("invalid payment method %q", o.PaymentMethod)
	}
	if o.Total.IsNegative() {
		return errors.New("order total must not be negative")
	}
	return nil
}

// HasInvoice reports whether an invoice was already generated.
func (o *Order) HasInvoice() bool { return o.InvoiceStoredFileName != "" }

// OrderItem is an immutable snapshot of a purchased line.
type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"not null;index"`
	ProductID   uint            `json:"product_id" gorm:"not null;index"`
	ProductName string          `json:"product_name" gorm:"size:200;not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	LineTotal   decimal.Decimal `json:"line_total" gorm:"type:numeric(12,2);not null"`
}

// ErrAppendOnly is returned by hooks of tables that only accept inserts.
var ErrAppendOnly = errors.New("record is append-only")

func (i *OrderItem) BeforeUpdate(tx *gorm.DB) error { return ErrAppendOnly }
func (i *OrderItem) BeforeDelete(tx *gorm.DB) error { return ErrAppendOnly }

// OrderStatusHistory is one audit row per status change.
type OrderStatusHistory struct {
	ID              uint        `json:"id" gorm:"primaryKey"`
	OrderID         uint        `json:"order_id" gorm:"not null;index"`
	Status          OrderStatus `json:"status" gorm:"size:20;not null"`
	Note            string      `json:"note,omitempty" gorm:"size:250"`
	ChangedAt       time.Time   `json:"changed_at" gorm:"not null"`
	ChangedByUserID string      `json:"changed_by_user_id" gorm:"size:36;not null"`
}

func (h *OrderStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if !h.Status.Valid() {
		return fmt.Errorf("invalid order status %q", h.Status)
	}
	return nil
}

func (h *OrderStatusHistory) BeforeUpdate(tx *gorm.DB) error { return ErrAppendOnly }
func (h *OrderStatusHistory) BeforeDelete(tx *gorm.DB) error { return ErrAppendOnly }
