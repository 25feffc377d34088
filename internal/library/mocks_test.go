package library

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"catalog-service/internal/catalog"
	"catalog-service/internal/events"
	"catalog-service/internal/media"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Save(ctx context.Context, tracks []catalog.Track) error {
	args := m.Called(ctx, tracks)
	return args.Error(0)
}

func (m *MockStore) Load(ctx context.Context) ([]catalog.Track, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Track), args.Error(1)
}

type MockMedia struct {
	mock.Mock
}

func (m *MockMedia) Save(ctx context.Context, kind media.Kind, filename string, r io.Reader) (string, error) {
	args := m.Called(ctx, kind, filename, r)
	return args.String(0), args.Error(1)
}

func (m *MockMedia) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev events.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
