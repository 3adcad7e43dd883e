package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// InventoryMovement is one signed entry of the append-only stock ledger.
type InventoryMovement struct {
	ID              uint         `json:"id" gorm:"primaryKey"`
	ProductID       uint         `json:"product_id" gorm:"not null;index"`
	QuantityDelta   int          `json:"quantity_delta" gorm:"not null"`
	Type            MovementType `json:"type" gorm:"size:30;not null"`
	Note            string       `json:"note,omitempty" gorm:"size:200"`
	CreatedAt       time.Time    `json:"created_at"`
	CreatedByUserID string       `json:"created_by_user_id" gorm:"size:36;not null"`
	OrderID         *uint        `json:"order_id,omitempty" gorm:"index"`
}

func (m *InventoryMovement) BeforeCreate(tx *gorm.DB) error {
	if !m.Type.Valid() {
		return fmt.Errorf("invalid movement type %q", m.Type)
	}
	if m.QuantityDelta == 0 {
		return fmt.Errorf("movement delta must not be zero")
	}
	return nil
}

func (m *InventoryMovement) BeforeUpdate(tx *gorm.DB) error { return ErrAppendOnly }
func (m *InventoryMovement) BeforeDelete(tx *gorm.DB) error { return ErrAppendOnly }
