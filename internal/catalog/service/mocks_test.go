package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	args := m.Called(topic, key, payload)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Lock(ctx context.Context, name, owner string) (bool, error) {
	args := m.Called(name, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) Unlock(ctx context.Context, name, owner string) error {
	args := m.Called(name, owner)
	return args.Error(0)
}
