package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type MemoryTestSuite struct {
	suite.Suite
	s   *Storage
	ctx context.Context
}

func (s *MemoryTestSuite) SetupTest() {
	s.s = NewStorage().(*Storage)
	s.ctx = context.Background()
}

func (s *MemoryTestSuite) TestReadWriteRemove() {
	_, ok, err := s.s.Read(s.ctx, "k")
	s.NoError(err)
	s.False(ok)

	s.NoError(s.s.Write(s.ctx, "k", []byte("v")))
	b, ok, err := s.s.Read(s.ctx, "k")
	s.NoError(err)
	s.True(ok)
	s.Equal([]byte("v"), b)

	s.NoError(s.s.Remove(s.ctx, "k"))
	s.NoError(s.s.Remove(s.ctx, "k"))
	_, ok, err = s.s.Read(s.ctx, "k")
	s.NoError(err)
	s.False(ok)

	s.True(s.s.Supported())
	s.NoError(s.s.Close())
}

func (s *MemoryTestSuite) TestCopies() {
	in := []byte("abc")
	s.NoError(s.s.Write(s.ctx, "k", in))
	in[0] = 'x'

	out, _, err := s.s.Read(s.ctx, "k")
	s.NoError(err)
	s.Equal([]byte("abc"), out)
	out[0] = 'y'

	again, _, err := s.s.Read(s.ctx, "k")
	s.NoError(err)
	s.Equal([]byte("abc"), again)
}

func (s *MemoryTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, _, err := s.s.Read(ctx, "k")
	s.ErrorIs(err, context.Canceled)
	s.ErrorIs(s.s.Write(ctx, "k", nil), context.Canceled)
	s.ErrorIs(s.s.Remove(ctx, "k"), context.Canceled)
}

func TestMemoryTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryTestSuite))
}
