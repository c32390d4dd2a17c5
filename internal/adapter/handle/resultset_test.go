package handle

import (
	"github.com/stretchr/testify/mock"
	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

func (s *HandleTestSuite) TestResultSet() {
	docs := []domain.Document{
		M{"_id": int64(1), "name": "a"},
		M{"_id": int64(2), "name": "b"},
	}
	rs := s.mgr.NewSet(docs, nil)

	s.Equal(2, rs.Len())
	s.Equal([]any{int64(1), int64(2)}, rs.IDs())
	s.Equal(docs, rs.Documents())

	handles := rs.Handles()
	s.Require().Len(handles, 2)
	s.Same(s.mgr.Handle(docs[0]), handles[0])

	s.Run("DocumentsAreCopies", func() {
		rs.Documents()[0].Set("name", "z")
		s.Equal("a", rs.Documents()[0].Get("name"))
	})

	s.Run("Scan", func() {
		type item struct {
			ID   int64  `kvdb:"_id"`
			Name string `kvdb:"name"`
		}
		var out []item
		s.NoError(rs.Scan(&out))
		s.Equal([]item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, out)
	})

	s.Run("Sync", func() {
		fresh := s.mgr.NewSet([]domain.Document{M{"_id": int64(2), "name": "c"}}, nil)
		s.coll.On("FindMany", s.ctx, nil).Return(fresh, nil).Once()

		s.NoError(rs.Sync(s.ctx))
		s.Equal([]any{int64(2)}, rs.IDs())
		s.Equal("c", rs.Handles()[0].Data().Get("name"))
	})
}

func (s *HandleTestSuite) TestWrittenSet() {
	rs := s.mgr.WrittenSet([]domain.Document{M{"_id": int64(4)}, M{"_id": int64(6)}})

	var pred domain.Predicate
	s.coll.On("FindMany", s.ctx, mock.Anything).Run(func(args mock.Arguments) {
		pred = args.Get(1).(domain.Predicate)
	}).Return(s.mgr.NewSet(nil, nil), nil).Once()

	s.NoError(rs.Sync(s.ctx))
	s.Zero(rs.Len())
	s.True(pred(M{"_id": int64(4)}))
	s.True(pred(M{"_id": int64(6)}))
	s.False(pred(M{"_id": int64(5)}))
}

func (s *HandleTestSuite) TestRemovedSet() {
	live := s.mgr.Handle(M{"_id": int64(1)})
	rs := s.mgr.RemovedSet([]domain.Document{M{"_id": int64(1)}, M{"_id": int64(2)}})

	handles := rs.Handles()
	s.Same(live, handles[0])
	s.True(handles[1].Deleted())
	s.Equal(1, s.cache.Len())
}
