package comparer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
)

type ComparerTestSuite struct {
	suite.Suite
	c *Comparer
}

func (s *ComparerTestSuite) SetupTest() {
	s.c = NewComparer().(*Comparer)
}

func (s *ComparerTestSuite) TestClassOrder() {
	ordered := []any{
		nil,
		int64(-3),
		"a",
		true,
		time.UnixMilli(1000),
		[]any{1},
		data.M{"a": 1},
	}
	for i := range ordered {
		for j := range ordered {
			comp, err := s.c.Compare(ordered[i], ordered[j])
			s.NoError(err)
			switch {
			case i < j:
				s.Equal(-1, comp, "%v < %v", ordered[i], ordered[j])
			case i > j:
				s.Equal(1, comp, "%v > %v", ordered[i], ordered[j])
			default:
				s.Equal(0, comp)
			}
		}
	}
}

func (s *ComparerTestSuite) TestNumbers() {
	testCases := []struct {
		a, b any
		res  int
	}{
		{a: int64(-12), b: int16(0), res: -1},
		{a: uint8(0), b: int8(-3), res: 1},
		{a: 5.7, b: uint32(2), res: 1},
		{a: 5.7, b: float32(12.3), res: -1},
		{a: uint64(0), b: uint16(0), res: 0},
		{a: int64(5), b: 5.0, res: 0},
		{a: int32(5), b: 5, res: 0},
	}
	for _, tc := range testCases {
		comp, err := s.c.Compare(tc.a, tc.b)
		s.NoError(err)
		s.Equal(tc.res, comp, "%v vs %v", tc.a, tc.b)
	}
}

func (s *ComparerTestSuite) TestSameClass() {
	s.Run("Strings", func() {
		comp, err := s.c.Compare("abc", "abd")
		s.NoError(err)
		s.Equal(-1, comp)
	})
	s.Run("Booleans", func() {
		comp, err := s.c.Compare(true, false)
		s.NoError(err)
		s.Equal(1, comp)
		comp, err = s.c.Compare(false, false)
		s.NoError(err)
		s.Equal(0, comp)
	})
	s.Run("Times", func() {
		comp, err := s.c.Compare(time.UnixMilli(5), time.UnixMilli(10))
		s.NoError(err)
		s.Equal(-1, comp)
	})
	s.Run("Arrays", func() {
		comp, err := s.c.Compare([]any{1, 2}, []any{1, 2, 0})
		s.NoError(err)
		s.Equal(-1, comp)
		comp, err = s.c.Compare([]any{1, "b"}, []any{1, "a", 7})
		s.NoError(err)
		s.Equal(1, comp)
		comp, err = s.c.Compare([]any{int64(1)}, []any{1.0})
		s.NoError(err)
		s.Equal(0, comp)
	})
	s.Run("Documents", func() {
		comp, err := s.c.Compare(data.M{"a": 1, "b": 2}, data.M{"b": 2, "a": 1})
		s.NoError(err)
		s.Equal(0, comp)
		comp, err = s.c.Compare(data.M{"a": 1}, data.M{"a": 2})
		s.NoError(err)
		s.Equal(-1, comp)
		comp, err = s.c.Compare(data.M{"a": 1, "b": 1}, data.M{"a": 1})
		s.NoError(err)
		s.Equal(1, comp)
		comp, err = s.c.Compare(data.M{"a": 1}, data.M{"b": 1})
		s.NoError(err)
		s.Equal(-1, comp)
	})
}

func (s *ComparerTestSuite) TestUnknownType() {
	_, err := s.c.Compare(struct{}{}, 1)
	s.Error(err)
	_, err = s.c.Compare([]any{1, make(chan int)}, []any{1, 2})
	s.Error(err)
}

func (s *ComparerTestSuite) TestComparable() {
	s.True(s.c.Comparable(1, 2.5))
	s.True(s.c.Comparable("a", "b"))
	s.True(s.c.Comparable(time.Now(), time.Now()))
	s.False(s.c.Comparable(1, "1"))
	s.False(s.c.Comparable(true, true))
	s.False(s.c.Comparable(nil, nil))
	s.False(s.c.Comparable([]any{}, []any{}))
}

func TestComparerTestSuite(t *testing.T) {
	suite.Run(t, new(ComparerTestSuite))
}
