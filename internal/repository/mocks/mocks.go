package mocks

import (
	"context"

	"github.com/civicwatch/civicwatch/internal/domain/activity"
	"github.com/civicwatch/civicwatch/internal/domain/report"
	"github.com/civicwatch/civicwatch/internal/domain/user"
	"github.com/stretchr/testify/mock"
)

// ReportRepository is a mock for report.Repository.
type ReportRepository struct {
	mock.Mock
}

func (m *ReportRepository) Create(ctx context.Context, doc *report.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *ReportRepository) Get(ctx context.Context, id string) (*report.Document, error) {
	args := m.Called(ctx, id)
	if doc, ok := args.Get(0).(*report.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReportRepository) UpdateStatus(ctx context.Context, id string, status report.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *ReportRepository) List(ctx context.Context, opts report.ListOptions) ([]report.Document, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]report.Document); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SearchRepository is a mock for report.SearchRepository.
type SearchRepository struct {
	mock.Mock
}

func (m *SearchRepository) Search(ctx context.Context, query string, opts report.SearchOptions) ([]report.SearchResult, error) {
	args := m.Called(ctx, query, opts)
	if list, ok := args.Get(0).([]report.SearchResult); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// UserRepository is a mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) SetRole(ctx context.Context, id string, role user.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *UserRepository) AddAPIKey(ctx context.Context, keyHash, userID, description string) error {
	args := m.Called(ctx, keyHash, userID, description)
	return args.Error(0)
}

func (m *UserRepository) ResolveAPIKey(ctx context.Context, keyHash string) (string, error) {
	args := m.Called(ctx, keyHash)
	return args.String(0), args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Backend is a mock for the remediation mutation backend.
type Backend struct {
	mock.Mock
}

func (m *Backend) UpdateStatus(ctx context.Context, id string, status report.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *Backend) CreateReport(ctx context.Context, req report.SubmitRequest) (report.Document, error) {
	args := m.Called(ctx, req)
	if doc, ok := args.Get(0).(report.Document); ok {
		return doc, args.Error(1)
	}
	return report.Document{}, args.Error(1)
}
