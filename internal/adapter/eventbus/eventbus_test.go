package eventbus

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

type EventBusTestSuite struct {
	suite.Suite
	b *Bus
}

func (s *EventBusTestSuite) SetupTest() {
	s.b = NewBus().(*Bus)
}

func (s *EventBusTestSuite) TestEmitOrder() {
	var calls []string
	s.b.On(func(domain.Event) { calls = append(calls, "first") }, domain.EventInsert)
	s.b.On(func(domain.Event) { calls = append(calls, "second") }, domain.EventInsert, domain.EventDelete)
	s.b.On(func(domain.Event) { calls = append(calls, "other") }, domain.EventUpdate)

	s.b.Emit(domain.Event{Kind: domain.EventInsert})
	s.Equal([]string{"first", "second"}, calls)

	calls = nil
	s.b.Emit(domain.Event{Kind: domain.EventDelete})
	s.Equal([]string{"second"}, calls)

	calls = nil
	s.b.Emit(domain.Event{Kind: domain.EventExpire})
	s.Empty(calls)
}

func (s *EventBusTestSuite) TestPayload() {
	var got domain.Event
	s.b.On(func(e domain.Event) { got = e }, domain.EventUpdate)
	e := domain.Event{Kind: domain.EventUpdate, IsMany: true}
	s.b.Emit(e)
	s.Equal(e, got)
}

func (s *EventBusTestSuite) TestUnsubscribe() {
	count := 0
	listener := func(domain.Event) { count++ }
	sub1 := s.b.On(listener, domain.EventInsert, domain.EventDelete)
	sub2 := s.b.On(listener, domain.EventInsert)
	s.Equal([]domain.EventKind{domain.EventInsert, domain.EventDelete}, sub1.Kinds())

	sub1.Unsubscribe()
	s.b.Emit(domain.Event{Kind: domain.EventInsert})
	s.b.Emit(domain.Event{Kind: domain.EventDelete})
	s.Equal(1, count)

	// idempotent
	sub1.Unsubscribe()
	s.b.Off(sub1)
	s.b.Emit(domain.Event{Kind: domain.EventInsert})
	s.Equal(2, count)

	s.b.Off(sub2)
	s.b.Emit(domain.Event{Kind: domain.EventInsert})
	s.Equal(2, count)
	s.Empty(s.b.listeners)
}

func (s *EventBusTestSuite) TestOffForeignSubscription() {
	count := 0
	s.b.On(func(domain.Event) { count++ }, domain.EventInsert)
	other := NewBus()
	s.b.Off(other.On(func(domain.Event) {}, domain.EventInsert))
	s.b.Off(nil)
	s.b.Emit(domain.Event{Kind: domain.EventInsert})
	s.Equal(1, count)
}

func (s *EventBusTestSuite) TestListenerMayUnsubscribe() {
	count := 0
	var sub domain.Subscription
	sub = s.b.On(func(domain.Event) {
		count++
		sub.Unsubscribe()
	}, domain.EventInsert)
	s.b.Emit(domain.Event{Kind: domain.EventInsert})
	s.b.Emit(domain.Event{Kind: domain.EventInsert})
	s.Equal(1, count)
}

func TestEventBusTestSuite(t *testing.T) {
	suite.Run(t, new(EventBusTestSuite))
}
