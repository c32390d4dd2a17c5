package timegetter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TimeGetterTestSuite struct {
	suite.Suite
}

func (s *TimeGetterTestSuite) TestWall() {
	before := time.Now()
	result := NewTimeGetter().GetTime()
	after := time.Now()

	s.False(result.Before(before))
	s.False(result.After(after))
}

func (s *TimeGetterTestSuite) TestFixed() {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	s.Run("Stopped", func() {
		f := NewFixed(start)
		s.Equal(start, f.GetTime())
		time.Sleep(time.Millisecond)
		s.Equal(start, f.GetTime())
	})

	s.Run("Set", func() {
		f := NewFixed(start)
		next := start.Add(time.Hour)
		f.Set(next)
		s.Equal(next, f.GetTime())
	})

	s.Run("Advance", func() {
		f := NewFixed(start)
		f.Advance(30 * time.Second)
		f.Advance(5 * time.Second)
		s.Equal(start.Add(35*time.Second), f.GetTime())
	})
}

func TestTimeGetterTestSuite(t *testing.T) {
	suite.Run(t, new(TimeGetterTestSuite))
}
