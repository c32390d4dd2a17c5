package database

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/backend"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/collection"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/handle"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/registry"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/settings"
)

type M = data.M

type backendStub struct {
	domain.Backend
	supported bool
}

func (b *backendStub) IsSupported() bool { return b.supported }

type DatabaseTestSuite struct {
	suite.Suite
	ctx         context.Context
	backend     domain.Backend
	collections *registry.Map[string, *collection.Collection]
	handles     *registry.Map[string, *handle.Handle]
	stores      map[domain.Backend]*settings.Store
	dropped     int
}

func (s *DatabaseTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = backend.NewBackend()
	s.collections = registry.New[string, *collection.Collection]()
	s.handles = registry.New[string, *handle.Handle]()
	s.stores = make(map[domain.Backend]*settings.Store)
	s.dropped = 0
}

func (s *DatabaseTestSuite) config(name string) Config {
	return Config{
		Name:        name,
		Collections: s.collections,
		Handles:     s.handles,
		Stores: func(b domain.Backend) *settings.Store {
			if st, ok := s.stores[b]; ok {
				return st
			}
			st := settings.NewStore(b, decoder.NewDecoder())
			s.stores[b] = st
			return st
		},
		OnDrop: func() { s.dropped++ },
		Logger: zerolog.Nop(),
	}
}

func (s *DatabaseTestSuite) open(name string, options ...domain.DatabaseOption) *Database {
	options = append([]domain.DatabaseOption{domain.WithBackends(s.backend)}, options...)
	db, err := NewDatabase(s.config(name), options...)
	s.Require().NoError(err)
	return db
}

func (s *DatabaseTestSuite) TestBackendSelection() {
	unsupported := &backendStub{Backend: backend.NewBackend()}
	supported := &backendStub{Backend: backend.NewBackend(), supported: true}

	s.Run("FirstSupported", func() {
		db, err := NewDatabase(s.config("db"), domain.WithBackends(nil, unsupported, supported))
		s.NoError(err)
		s.Same(supported, db.Backend())
	})

	s.Run("FallbackToFirst", func() {
		other := &backendStub{Backend: backend.NewBackend()}
		db, err := NewDatabase(s.config("db"), domain.WithBackends(unsupported, other))
		s.NoError(err)
		s.Same(unsupported, db.Backend())
	})

	s.Run("None", func() {
		_, err := NewDatabase(s.config("db"))
		s.ErrorIs(err, domain.ErrNoBackend)
		_, err = NewDatabase(s.config("db"), domain.WithBackends(nil))
		s.ErrorIs(err, domain.ErrNoBackend)
	})
}

func (s *DatabaseTestSuite) TestNames() {
	db := s.open("db", domain.WithDatabaseGroup("g"))
	s.Equal("db", db.Name())
	s.Equal("g:db", db.FullName())

	c, err := db.Collection(s.ctx, "items", domain.WithGroup("cg"))
	s.Require().NoError(err)
	_, err = c.InsertOne(s.ctx, M{"a": 1})
	s.Require().NoError(err)

	raw, err := s.backend.Get(s.ctx, "g:db:cg:items", nil)
	s.NoError(err)
	s.Len(raw, 1)

	st, err := db.Settings(s.ctx)
	s.NoError(err)
	s.Equal("g:db", st.Name)
	s.Require().Len(st.Collections, 1)
	s.Equal("cg:items", st.Collections[0].Name)
}

func (s *DatabaseTestSuite) TestCollection() {
	db := s.open("db")

	a, err := db.Collection(s.ctx, "items")
	s.Require().NoError(err)
	b, err := db.Collection(s.ctx, "items", domain.WithMaxLength(1))
	s.Require().NoError(err)
	s.Same(a, b)

	grouped, err := db.Collection(s.ctx, "items", domain.WithGroup("g"))
	s.Require().NoError(err)
	s.NotSame(a, grouped)

	other := s.open("other")
	foreign, err := other.Collection(s.ctx, "items")
	s.Require().NoError(err)

	s.Equal([]domain.Collection{a, grouped}, db.Collections())
	s.Equal([]domain.Collection{foreign}, other.Collections())

	s.Run("Sibling", func() {
		c, ok := db.Sibling("items")
		s.True(ok)
		s.Same(a, c)

		c, ok = db.Sibling("g:items")
		s.True(ok)
		s.Same(grouped, c)

		_, ok = db.Sibling("missing")
		s.False(ok)
	})
}

func (s *DatabaseTestSuite) TestDropKeepsGroupedNamesake() {
	db := s.open("db")
	a, err := db.Collection(s.ctx, "a")
	s.Require().NoError(err)
	_, err = a.InsertOne(s.ctx, M{"v": 1})
	s.Require().NoError(err)
	b, err := db.Collection(s.ctx, "b", domain.WithGroup("a"))
	s.Require().NoError(err)
	h, err := b.InsertOne(s.ctx, M{"v": 1})
	s.Require().NoError(err)

	s.NoError(a.Drop(s.ctx))

	_, err = b.UpdateOne(s.ctx, M{"_id": 1, "v": 2})
	s.NoError(err)
	s.False(h.Deleted())
	s.Equal(int64(2), h.Data().Get("v"))
}

func (s *DatabaseTestSuite) TestExpiryHandlerSibling() {
	db := s.open("db")
	users, err := db.Collection(s.ctx, "users")
	s.Require().NoError(err)
	_, err = users.InsertOne(s.ctx, M{"name": "ana"})
	s.Require().NoError(err)
	sessions, err := db.Collection(s.ctx, "sessions")
	s.Require().NoError(err)
	_, err = sessions.InsertMany(s.ctx, M{"user": "ana"}, M{"user": "bob"})
	s.Require().NoError(err)
	db.Close()

	var foundSelf bool
	handler := func(ec domain.ExpiryContext) bool {
		_, foundSelf = ec.Collection.Database().Sibling("sessions")
		owners, ok := ec.Collection.Database().Sibling("users")
		if !ok {
			return false
		}
		h, err := owners.FindOne(context.Background(), M{"name": ec.Document.Get("user")})
		return err == nil && h == nil
	}

	opened := make(chan error, 1)
	go func() {
		if _, err := db.Collection(s.ctx, "users"); err != nil {
			opened <- err
			return
		}
		_, err := db.Collection(s.ctx, "sessions",
			domain.WithExpirationKey("user"),
			domain.WithExpirationEvery(0),
			domain.WithExpirationHandler(handler),
		)
		opened <- err
	}()

	select {
	case err := <-opened:
		s.NoError(err)
	case <-time.After(time.Second):
		s.FailNow("opening a collection whose expiry handler looks up siblings did not return")
	}
	s.True(foundSelf)

	c, ok := db.Sibling("sessions")
	s.Require().True(ok)
	rs, err := c.FindMany(s.ctx, nil)
	s.NoError(err)
	s.Equal([]any{int64(1)}, rs.IDs())
}

func (s *DatabaseTestSuite) TestUpdateSettings() {
	db := s.open("db")
	_, err := db.Collection(s.ctx, "items")
	s.Require().NoError(err)

	err = db.UpdateSettings(s.ctx, func(prev domain.DatabaseSettings) (domain.DatabaseSettings, error) {
		prev.Collections[0].Last = 40
		return prev, nil
	})
	s.NoError(err)

	c, ok := db.Sibling("items")
	s.Require().True(ok)
	h, err := c.InsertOne(s.ctx, M{})
	s.NoError(err)
	s.Equal(int64(41), h.ID())
}

func (s *DatabaseTestSuite) TestDrop() {
	db := s.open("db")
	users, err := db.Collection(s.ctx, "users")
	s.Require().NoError(err)
	_, err = users.InsertMany(s.ctx, M{"name": "a"}, M{"name": "b"})
	s.Require().NoError(err)
	var drops int
	users.Events().On(func(domain.Event) { drops++ }, domain.EventDrop)

	s.NoError(db.Drop(s.ctx))
	s.Equal(1, drops)
	s.Equal(1, s.dropped)
	s.Empty(db.Collections())
	s.Zero(s.handles.Len())

	all, err := s.stores[s.backend].All(s.ctx)
	s.NoError(err)
	s.Empty(all)

	again := s.open("db")
	fresh, err := again.Collection(s.ctx, "users")
	s.Require().NoError(err)
	s.NotSame(users, fresh)
	rs, err := fresh.FindMany(s.ctx, nil)
	s.NoError(err)
	s.Zero(rs.Len())
}

func (s *DatabaseTestSuite) TestClose() {
	db := s.open("db")
	c, err := db.Collection(s.ctx, "items")
	s.Require().NoError(err)
	_, err = c.InsertOne(s.ctx, M{"a": 1})
	s.Require().NoError(err)

	db.Close()
	s.Empty(db.Collections())

	reopened, err := db.Collection(s.ctx, "items")
	s.Require().NoError(err)
	s.NotSame(c, reopened)
	rs, err := reopened.FindMany(s.ctx, nil)
	s.NoError(err)
	s.Equal(1, rs.Len())
}

func (s *DatabaseTestSuite) TestReferences() {
	db := s.open("db")
	users, err := db.Collection(s.ctx, "users")
	s.Require().NoError(err)
	_, err = users.InsertMany(s.ctx,
		M{"name": "ana", "email": "ana@x"},
		M{"name": "bob", "email": "bob@x"},
	)
	s.Require().NoError(err)

	posts, err := db.Collection(s.ctx, "posts", domain.WithRefs(map[string]domain.Reference{
		"author":        {Target: "users"},
		"contact.email": {Target: "users.email"},
		"editor":        {Target: "editors"},
		"title_len": {Func: func(d domain.Document) (any, error) {
			return len(d.Get("title").(string)), nil
		}},
	}))
	s.Require().NoError(err)

	h, err := posts.InsertOne(s.ctx, M{
		"title":   "hello",
		"author":  2,
		"contact": M{"email": "ana@x"},
		"editor":  1,
	})
	s.Require().NoError(err)

	author, err := h.ResolveReference(s.ctx, "author")
	s.NoError(err)
	s.Equal(M{"_id": int64(2), "name": "bob", "email": "bob@x"}, author)

	contact, err := h.ResolveReference(s.ctx, "contact.email")
	s.NoError(err)
	s.Equal(M{"_id": int64(1), "name": "ana", "email": "ana@x"}, contact)

	editor, err := h.ResolveReference(s.ctx, "editor")
	s.NoError(err)
	s.Nil(editor)

	n, err := h.ResolveReference(s.ctx, "title_len")
	s.NoError(err)
	s.Equal(5, n)

	s.Run("Absent", func() {
		orphan, err := posts.InsertOne(s.ctx, M{"title": "x", "author": 9})
		s.Require().NoError(err)
		v, err := orphan.ResolveReference(s.ctx, "author")
		s.NoError(err)
		s.Nil(v)
	})
}

func TestDatabaseTestSuite(t *testing.T) {
	suite.Run(t, new(DatabaseTestSuite))
}
