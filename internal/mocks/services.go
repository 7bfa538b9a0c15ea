package mocks

import (
	"context"
	"database/sql"

	"github.com/kesara/purple/internal/models"
)

// MockSink is a mock implementation of service.Sink
type MockSink struct {
	Batches [][]int64
	Err     error
}

func (m *MockSink) NotifyChanged(ctx context.Context, rfcIDs []int64) error {
	if m.Err != nil {
		return m.Err
	}
	m.Batches = append(m.Batches, rfcIDs)
	return nil
}

// MockActivityProvider is a mock implementation of service.ActivityProvider
type MockActivityProvider struct {
	Incomplete map[int64][]models.Role
	Pending    map[int64][]models.Role
	Err        error
}

func NewMockActivityProvider() *MockActivityProvider {
	return &MockActivityProvider{
		Incomplete: make(map[int64][]models.Role),
		Pending:    make(map[int64][]models.Role),
	}
}

func (m *MockActivityProvider) IncompleteActivities(ctx context.Context, tx *sql.Tx, rfcID int64) ([]models.Role, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Incomplete[rfcID], nil
}

func (m *MockActivityProvider) PendingActivities(ctx context.Context, tx *sql.Tx, rfcID int64) ([]models.Role, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Pending[rfcID], nil
}
