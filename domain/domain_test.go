package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/modifier"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/querier"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/storage/memory"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/timegetter"
)

type DomainTestSuite struct {
	suite.Suite
}

func (s *DomainTestSuite) TestCollectionOptions() {
	tg := timegetter.NewFixed(time.Unix(10, 0))
	q := querier.NewQuerier()
	dec := decoder.NewDecoder()
	refs := map[string]domain.Reference{"a": {Target: "b"}}
	logger := zerolog.Nop().With().Str("a", "b").Logger()

	var cos domain.CollectionOptions
	co := []domain.CollectionOption{
		domain.WithRemoveAfterLimit(true),
		domain.WithMaxSize(1),
		domain.WithMaxLength(2),
		domain.WithGroup("g"),
		domain.WithExpirationKey("exp"),
		domain.WithExpirationEvery(3),
		domain.WithRefs(refs),
		domain.WithCollectionLogger(logger),
		domain.WithCollectionTimeGetter(tg),
		domain.WithCollectionQuerier(q),
		domain.WithCollectionDecoder(dec),
	}
	for _, opt := range co {
		opt(&cos)
	}
	s.Equal(domain.CollectionOptions{
		RemoveAfterLimit: true,
		MaxSize:          1,
		MaxLength:        2,
		Group:            "g",
		Expiration:       domain.ExpirationOptions{Key: "exp", Every: 3},
		Refs:             refs,
		Logger:           logger,
		TimeGetter:       tg,
		Querier:          q,
		Decoder:          dec,
	}, cos)

	// functions are not comparable
	var called bool
	domain.WithExpirationHandler(func(domain.ExpiryContext) bool {
		called = true
		return false
	})(&cos)
	domain.WithCollectionDocumentFactory(data.NewDocument)(&cos)
	s.NotNil(cos.DocumentFactory)
	s.Require().NotNil(cos.Expiration.Handler)
	cos.Expiration.Handler(domain.ExpiryContext{})
	s.True(called)
}

func (s *DomainTestSuite) TestDatabaseOptions() {
	logger := zerolog.Nop()
	var dos domain.DatabaseOptions
	domain.WithBackends(nil, nil)(&dos)
	domain.WithDatabaseGroup("g")(&dos)
	domain.WithDatabaseLogger(logger)(&dos)
	s.Equal(domain.DatabaseOptions{
		Backends: []domain.Backend{nil, nil},
		Group:    "g",
		Logger:   &logger,
	}, dos)

	var kos domain.KVDBOptions
	domain.WithLogger(logger)(&kos)
	s.Equal(domain.KVDBOptions{Logger: logger}, kos)
}

func (s *DomainTestSuite) TestBackendOptions() {
	st := memory.NewStorage()
	var bos domain.BackendOptions
	bo := []domain.BackendOption{
		domain.WithBackendStorage(st),
		domain.WithBackendSerializer(nil),
		domain.WithBackendDeserializer(nil),
		domain.WithCacheInMemory(true),
		domain.WithBackendLogger(zerolog.Nop()),
	}
	for _, opt := range bo {
		opt(&bos)
	}
	s.Equal(domain.BackendOptions{
		Storage:       st,
		CacheInMemory: true,
		Logger:        zerolog.Nop(),
	}, bos)

	var fos domain.FileStorageOptions
	domain.WithFileStorageFileMode(0o600)(&fos)
	domain.WithFileStorageDirMode(0o700)(&fos)
	s.Equal(domain.FileStorageOptions{FileMode: 0o600, DirMode: 0o700}, fos)
}

func (s *DomainTestSuite) TestAlgorithmOptions() {
	comp := comparer.NewComparer()
	mtchr := matcher.NewMatcher()
	mdf := modifier.NewModifier(data.NewDocument)

	var mos domain.MatcherOptions
	domain.WithMatcherComparer(comp)(&mos)
	s.Equal(domain.MatcherOptions{Comparer: comp}, mos)
	domain.WithMatcherDocumentFactory(data.NewDocument)(&mos)
	s.NotNil(mos.DocumentFactory)

	var qos domain.QuerierOptions
	qo := []domain.QuerierOption{
		domain.WithQuerierMatcher(mtchr),
		domain.WithQuerierModifier(mdf),
		domain.WithQuerierComparer(comp),
	}
	for _, opt := range qo {
		opt(&qos)
	}
	s.Equal(domain.QuerierOptions{Matcher: mtchr, Modifier: mdf, Comparer: comp}, qos)
	domain.WithQuerierDocumentFactory(data.NewDocument)(&qos)
	s.NotNil(qos.DocumentFactory)
}

func (s *DomainTestSuite) TestErrorMessages() {
	var e error

	e = domain.ErrDocumentType{Reason: "nah"}
	s.Equal("invalid document: nah", e.Error())

	e = domain.ErrUnknownReference{Name: "author"}
	s.Equal(`unknown reference "author"`, e.Error())

	fsync := errors.New("fsync")
	closeErr := errors.New("close")

	e = domain.ErrFlushToStorage{ErrorOnFsync: fsync, ErrorOnClose: closeErr}
	s.Equal("storage flush error: fsync", e.Error())
	s.ErrorIs(e, fsync)

	e = domain.ErrFlushToStorage{ErrorOnClose: closeErr}
	s.Equal("storage flush error: close", e.Error())
	s.ErrorIs(e, closeErr)

	s.Equal("documents cannot be inserted with a _id field", domain.ErrIDProvided.Error())
}

func TestDomainTestSuite(t *testing.T) {
	suite.Run(t, new(DomainTestSuite))
}
