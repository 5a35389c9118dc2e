package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/daybook/internal/client/repositories/metadata"
	"github.com/google/uuid"
)

// DeviceService resolves the identity of this installation. The id is created
// on first use, persisted and never rotated.
type DeviceService interface {
	DeviceID(ctx context.Context) (string, error)
}

type deviceService struct {
	meta metadata.Repository

	mu sync.Mutex
	id string
}

func NewDeviceService(meta metadata.Repository) DeviceService {
	return &deviceService{meta: meta}
}

func (s *deviceService) DeviceID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != "" {
		return s.id, nil
	}

	v, err := s.meta.Get(ctx, metadata.KeyDeviceID)
	if err != nil {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}
	if len(v) > 0 {
		s.id = string(v)
		return s.id, nil
	}

	id := uuid.NewString()
	if err := s.meta.Set(ctx, metadata.KeyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to store device id: %w", err)
	}
	s.id = id
	return id, nil
}
