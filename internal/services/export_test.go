package services

import "time"

func (s *OrderService) SetClock(now func() time.Time)   { s.now = now }
func (s *CartService) SetClock(now func() time.Time)    { s.now = now }
func (s *InvoiceService) SetClock(now func() time.Time) { s.now = now }
