package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
)

// Transport is a mock implementation of transport.Transport
type Transport struct {
	mock.Mock
}

func (m *Transport) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *Transport) Get(ctx context.Context, path string) ([]byte, time.Time, error) {
	args := m.Called(ctx, path)
	var data []byte
	if b, ok := args.Get(0).([]byte); ok {
		data = b
	}
	return data, args.Get(1).(time.Time), args.Error(2)
}

func (m *Transport) Put(ctx context.Context, path string, data []byte) error {
	args := m.Called(ctx, path, data)
	return args.Error(0)
}

func (m *Transport) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *Transport) Open(ctx context.Context, path string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, path)
	if rs, ok := args.Get(0).(io.ReadSeekCloser); ok {
		return rs, args.Error(1)
	}
	return nil, args.Error(1)
}
