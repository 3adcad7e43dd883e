package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"bevera/internal/logger"
	"bevera/internal/models"
	"bevera/internal/repositories"
	"bevera/pkg/invoice"
	"bevera/pkg/storage"

	"go.uber.org/zap"
)

// InvoiceService generates an invoice once per order and serves it after.
type InvoiceService struct {
	orders   repositories.OrderRepository
	files    storage.Storage
	renderer invoice.Renderer
	log      *zap.Logger
	now      Clock
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(orders repositories.OrderRepository, files storage.Storage, renderer invoice.Renderer, log *zap.Logger) *InvoiceService {
	return &InvoiceService{orders: orders, files: files, renderer: renderer, log: logger.OrNop(log), now: systemClock}
}

// Ensure returns the order with invoice metadata, rendering and storing the
// invoice on first use.
func (s *InvoiceService) Ensure(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.ensure(ctx, order)
}

// EnsureForClient is Ensure restricted to the client's own orders.
func (s *InvoiceService) EnsureForClient(ctx context.Context, orderID uint, clientID string) (*models.Order, error) {
	order, err := s.orders.GetForClient(ctx, orderID, clientID)
	if err != nil {
		return nil, err
	}
	return s.ensure(ctx, order)
}

func (s *InvoiceService) ensure(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.HasInvoice() {
		return order, nil
	}

	now := s.now()
	data, err := s.renderer.Render(document(order, now))
	if err != nil {
		return nil, err
	}
	name, size, err := s.files.Save("invoices", ".pdf", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	stored, err := s.orders.SetInvoice(ctx, order.ID, repositories.InvoiceMeta{
		FileName:       invoice.FileName(order.ID),
		StoredFileName: name,
		ContentType:    s.renderer.ContentType(),
		Size:           size,
		CreatedAt:      now,
	})
	if err != nil || !stored {
		// Another request stored its invoice first; keep that one.
		if rmErr := s.files.Remove(name); rmErr != nil {
			s.log.Warn("failed to remove unused invoice", zap.String("file", name), zap.Error(rmErr))
		}
		if err != nil {
			return nil, err
		}
	} else {
		s.log.Info("invoice generated", zap.Uint("order_id", order.ID), zap.Int64("size", size))
	}
	return s.orders.GetByID(ctx, order.ID)
}

// Open streams the stored invoice of an order that already has one.
func (s *InvoiceService) Open(order *models.Order) (io.ReadCloser, error) {
	if !order.HasInvoice() {
		return nil, fmt.Errorf("invoice of order %d: %w", order.ID, ErrNotFound)
	}
	rc, err := s.files.Open(order.InvoiceStoredFileName)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("invoice of order %d: %w", order.ID, ErrNotFound)
	}
	return rc, err
}

func document(o *models.Order, issuedAt time.Time) invoice.Document {
	doc := invoice.Document{
		Number:        o.ID,
		IssuedAt:      issuedAt,
		OrderedAt:     o.CreatedAt,
		Customer:      o.FullName,
		Email:         o.Email,
		Phone:         o.Phone,
		Address:       o.Address,
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		Total:         o.Total,
	}
	for _, it := range o.Items {
		doc.Lines = append(doc.Lines, invoice.Line{
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Total:     it.LineTotal,
		})
	}
	return doc
}
