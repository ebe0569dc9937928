package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// StubProvider keeps charges in memory for development and tests.
// Charges stay "created" until SetStatus is called.
type StubProvider struct {
	mu      sync.Mutex
	charges map[string]*Charge
}

func NewStubProvider() *StubProvider {
	return &StubProvider{charges: make(map[string]*Charge)}
}

func (s *StubProvider) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	id := "stub_" + uuid.NewString()
	c := &Charge{
		ID:           id,
		Status:       StatusCreated,
		Amount:       req.Amount,
		QRCode:       "00020126stub" + id,
		QRCodeBase64: "",
	}
	s.mu.Lock()
	s.charges[id] = c
	s.mu.Unlock()
	cp := *c
	return &cp, nil
}

func (s *StubProvider) GetCharge(ctx context.Context, id string) (*Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[id]
	if !ok {
		return nil, ErrChargeNotFound
	}
	cp := *c
	return &cp, nil
}

// SetStatus changes a stored charge, simulating the payer acting on it.
func (s *StubProvider) SetStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.charges[id]
	if ok {
		c.Status = status
	}
	return ok
}
