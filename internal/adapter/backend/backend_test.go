package backend

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/storage/memory"
)

type M = data.M

type storageMock struct{ mock.Mock }

// Read implements domain.Storage.
func (s *storageMock) Read(ctx context.Context, key string) ([]byte, bool, error) {
	call := s.Called(ctx, key)
	b, _ := call.Get(0).([]byte)
	return b, call.Bool(1), call.Error(2)
}

// Write implements domain.Storage.
func (s *storageMock) Write(ctx context.Context, key string, data []byte) error {
	return s.Called(ctx, key, data).Error(0)
}

// Remove implements domain.Storage.
func (s *storageMock) Remove(ctx context.Context, key string) error {
	return s.Called(ctx, key).Error(0)
}

// Supported implements domain.Storage.
func (s *storageMock) Supported() bool {
	return s.Called().Bool(0)
}

// Close implements domain.Storage.
func (s *storageMock) Close() error {
	return s.Called().Error(0)
}

type BackendTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *BackendTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *BackendTestSuite) TestSetGet() {
	b := NewBackend()

	v, err := b.Get(s.ctx, "k", "default")
	s.NoError(err)
	s.Equal("default", v)

	raw, err := b.Set(s.ctx, "k", []domain.Document{M{"_id": int64(1), "a": "x"}})
	s.NoError(err)
	s.JSONEq(`[{"_id":1,"a":"x"}]`, string(raw))

	v, err = b.Get(s.ctx, "k", nil)
	s.NoError(err)
	s.Equal([]any{M{"_id": int64(1), "a": "x"}}, v)
}

func (s *BackendTestSuite) TestGetReturnsCopies() {
	for _, cache := range []bool{true, false} {
		b := NewBackend(domain.WithCacheInMemory(cache))
		_, err := b.Set(s.ctx, "k", M{"a": M{"b": int64(1)}})
		s.NoError(err)

		v, err := b.Get(s.ctx, "k", nil)
		s.NoError(err)
		v.(M).D("a").Set("b", int64(2))

		again, err := b.Get(s.ctx, "k", nil)
		s.NoError(err)
		s.Equal(M{"a": M{"b": int64(1)}}, again)
	}
}

func (s *BackendTestSuite) TestCacheSkipsStorage() {
	st := new(storageMock)
	b := NewBackend(domain.WithBackendStorage(st))

	st.On("Write", mock.Anything, "k", []byte(`1`)).Return(nil).Once()
	_, err := b.Set(s.ctx, "k", 1)
	s.NoError(err)

	v, err := b.Get(s.ctx, "k", nil)
	s.NoError(err)
	s.Equal(int64(1), v)
	st.AssertExpectations(s.T())
	st.AssertNotCalled(s.T(), "Read", mock.Anything, mock.Anything)
}

func (s *BackendTestSuite) TestWithoutCache() {
	st := new(storageMock)
	b := NewBackend(domain.WithBackendStorage(st), domain.WithCacheInMemory(false))

	st.On("Read", mock.Anything, "k").Return([]byte(`{"at":{"$$date":1700000000000}}`), true, nil).Twice()
	for range 2 {
		v, err := b.Get(s.ctx, "k", nil)
		s.NoError(err)
		s.Equal(M{"at": time.UnixMilli(1700000000000)}, v)
	}
	st.AssertExpectations(s.T())
}

func (s *BackendTestSuite) TestDecodeFailure() {
	var buf bytes.Buffer
	st := memory.NewStorage()
	s.NoError(st.Write(s.ctx, "k", []byte(`{broken`)))
	b := NewBackend(
		domain.WithBackendStorage(st),
		domain.WithBackendLogger(zerolog.New(&buf)),
	)

	v, err := b.Get(s.ctx, "k", "default")
	s.NoError(err)
	s.Equal("default", v)
	s.Contains(buf.String(), `"level":"warn"`)
	s.Contains(buf.String(), `"component":"backend"`)
}

func (s *BackendTestSuite) TestStorageErrors() {
	st := new(storageMock)
	b := NewBackend(domain.WithBackendStorage(st))
	errStorage := errors.New("storage error")

	st.On("Read", mock.Anything, "k").Return(nil, false, errStorage).Once()
	_, err := b.Get(s.ctx, "k", nil)
	s.ErrorIs(err, errStorage)

	st.On("Write", mock.Anything, "k", mock.Anything).Return(errStorage).Once()
	_, err = b.Set(s.ctx, "k", 1)
	s.ErrorIs(err, errStorage)

	st.On("Remove", mock.Anything, "k").Return(errStorage).Once()
	s.ErrorIs(b.Drop(s.ctx, "k"), errStorage)
	st.AssertExpectations(s.T())
}

func (s *BackendTestSuite) TestUpdate() {
	b := NewBackend()

	raw, err := b.Update(s.ctx, "k", func(prev any) (any, error) {
		s.Nil(prev)
		return []any{int64(1)}, nil
	})
	s.NoError(err)
	s.Equal(`[1]`, string(raw))

	raw, err = b.Update(s.ctx, "k", func(prev any) (any, error) {
		return append(prev.([]any), int64(2)), nil
	})
	s.NoError(err)
	s.Equal(`[1,2]`, string(raw))

	errUpdate := errors.New("update error")
	_, err = b.Update(s.ctx, "k", func(any) (any, error) { return nil, errUpdate })
	s.ErrorIs(err, errUpdate)
}

func (s *BackendTestSuite) TestDrop() {
	b := NewBackend()
	_, err := b.Set(s.ctx, "k", 1)
	s.NoError(err)
	s.NoError(b.Drop(s.ctx, "k"))

	v, err := b.Get(s.ctx, "k", nil)
	s.NoError(err)
	s.Nil(v)
}

func (s *BackendTestSuite) TestEncodeDecode() {
	b := NewBackend()
	raw, err := b.Encode(M{"a": []any{int64(1), 2.5}})
	s.NoError(err)

	v, err := b.Decode(raw)
	s.NoError(err)
	s.Equal(M{"a": []any{int64(1), 2.5}}, v)

	_, err = b.Decode([]byte(`nope`))
	s.Error(err)
}

func (s *BackendTestSuite) TestIsSupported() {
	st := new(storageMock)
	st.On("Supported").Return(false).Once()
	s.False(NewBackend(domain.WithBackendStorage(st)).IsSupported())
	s.True(NewBackend().IsSupported())
}

func TestBackendTestSuite(t *testing.T) {
	suite.Run(t, new(BackendTestSuite))
}
