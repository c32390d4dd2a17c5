// Package querier contains the default [domain.Querier] implementation.
package querier

import (
	"fmt"
	"reflect"
	"slices"

	goreflect "github.com/goccy/go-reflect"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/modifier"
)

// Querier implements [domain.Querier].
type Querier struct {
	mtchr  domain.Matcher
	mdf    domain.Modifier
	cmpr   domain.Comparer
	docFac domain.DocumentFactory
}

// NewQuerier returns a new implementation of [domain.Querier].
func NewQuerier(options ...domain.QuerierOption) domain.Querier {
	opts := domain.QuerierOptions{
		DocumentFactory: data.NewDocument,
		Comparer:        comparer.NewComparer(),
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Matcher == nil {
		opts.Matcher = matcher.NewMatcher(
			domain.WithMatcherComparer(opts.Comparer),
			domain.WithMatcherDocumentFactory(opts.DocumentFactory),
		)
	}
	if opts.Modifier == nil {
		opts.Modifier = modifier.NewModifier(opts.DocumentFactory)
	}
	return &Querier{
		mtchr:  opts.Matcher,
		mdf:    opts.Modifier,
		cmpr:   opts.Comparer,
		docFac: opts.DocumentFactory,
	}
}

// FindMany implements [domain.Querier].
func (q *Querier) FindMany(docs []domain.Document, target any) ([]domain.Document, error) {
	if target == nil {
		return slices.Clone(docs), nil
	}
	pred, err := q.predicate(target)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		ok, err := pred(doc)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, doc)
		}
	}
	return res, nil
}

// FindOne implements [domain.Querier].
func (q *Querier) FindOne(docs []domain.Document, target any) (domain.Document, error) {
	if target == nil {
		if len(docs) == 0 {
			return nil, nil
		}
		return docs[0], nil
	}
	pred, err := q.predicate(target)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		ok, err := pred(doc)
		if err != nil {
			return nil, err
		}
		if ok {
			return doc, nil
		}
	}
	return nil, nil
}

// InsertMany implements [domain.Querier].
func (q *Querier) InsertMany(docs []domain.Document, newDocs ...domain.Document) []domain.Document {
	res := make([]domain.Document, 0, len(docs)+len(newDocs))
	return append(append(res, docs...), newDocs...)
}

// InsertOne implements [domain.Querier].
func (q *Querier) InsertOne(docs []domain.Document, newDoc domain.Document) []domain.Document {
	return q.InsertMany(docs, newDoc)
}

// DeleteMany implements [domain.Querier].
func (q *Querier) DeleteMany(docs []domain.Document, target any) ([]domain.Document, []domain.Document, error) {
	if target == nil {
		return slices.Clone(docs), []domain.Document{}, nil
	}
	pred, err := q.predicate(target)
	if err != nil {
		return nil, nil, err
	}
	deleted := make([]domain.Document, 0)
	rest := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		ok, err := pred(doc)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			deleted = append(deleted, doc)
		} else {
			rest = append(rest, doc)
		}
	}
	return deleted, rest, nil
}

// DeleteOne implements [domain.Querier].
func (q *Querier) DeleteOne(docs []domain.Document, target any) (domain.Document, []domain.Document, error) {
	if len(docs) == 0 {
		return nil, []domain.Document{}, nil
	}
	if target == nil {
		return docs[0], slices.Clone(docs[1:]), nil
	}
	pred, err := q.predicate(target)
	if err != nil {
		return nil, nil, err
	}
	for n, doc := range docs {
		ok, err := pred(doc)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			rest := make([]domain.Document, 0, len(docs)-1)
			return doc, append(append(rest, docs[:n]...), docs[n+1:]...), nil
		}
	}
	return nil, slices.Clone(docs), nil
}

// UpdateMany implements [domain.Querier]. targets is either a patch function
// or a list of patches carrying the identifier of the document they apply to.
func (q *Querier) UpdateMany(docs []domain.Document, targets any) ([]domain.Document, []domain.Document, error) {
	patchFor, err := q.patcher(targets, true)
	if err != nil {
		return nil, nil, err
	}

	updated := make([]domain.Document, 0)
	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		merged, err := q.apply(doc, patchFor)
		if err != nil {
			return nil, nil, err
		}
		if merged == nil {
			res[n] = doc
			continue
		}
		updated = append(updated, merged)
		res[n] = merged
	}
	return updated, res, nil
}

// UpdateOne implements [domain.Querier]. target is either a patch function or
// one patch carrying the identifier of the document it applies to.
func (q *Querier) UpdateOne(docs []domain.Document, target any) (domain.Document, []domain.Document, error) {
	patchFor, err := q.patcher(target, false)
	if err != nil {
		return nil, nil, err
	}

	res := slices.Clone(docs)
	for n, doc := range docs {
		merged, err := q.apply(doc, patchFor)
		if err != nil {
			return nil, nil, err
		}
		if merged != nil {
			res[n] = merged
			return merged, res, nil
		}
	}
	return nil, res, nil
}

func (q *Querier) apply(doc domain.Document, patchFor func(domain.Document) (domain.Document, error)) (domain.Document, error) {
	patch, err := patchFor(doc)
	if err != nil || patch == nil {
		return nil, err
	}
	merged, err := q.mdf.Modify(doc, patch)
	if err != nil {
		return nil, fmt.Errorf("merging patch: %w", err)
	}
	return merged, nil
}

func (q *Querier) predicate(target any) (func(domain.Document) (bool, error), error) {
	switch t := target.(type) {
	case func(domain.Document) bool:
		return func(d domain.Document) (bool, error) { return t(d), nil }, nil
	case domain.Predicate:
		return func(d domain.Document) (bool, error) { return t(d), nil }, nil
	default:
		pattern, err := q.docFac(target)
		if err != nil {
			return nil, fmt.Errorf("parsing pattern: %w", err)
		}
		return func(d domain.Document) (bool, error) {
			ok, err := q.mtchr.Match(d, pattern)
			if err != nil {
				return false, fmt.Errorf("matching document: %w", err)
			}
			return ok, nil
		}, nil
	}
}

func (q *Querier) patcher(target any, many bool) (func(domain.Document) (domain.Document, error), error) {
	var fn func(domain.Document) any
	switch t := target.(type) {
	case func(domain.Document) any:
		fn = t
	case domain.Patcher:
		fn = t
	}
	if fn != nil {
		return func(d domain.Document) (domain.Document, error) {
			patch := fn(d)
			if patch == nil {
				return nil, nil
			}
			doc, err := q.docFac(patch)
			if err != nil {
				return nil, fmt.Errorf("parsing patch: %w", err)
			}
			return doc, nil
		}, nil
	}

	var patches []domain.Document
	if many {
		items, err := q.list(target)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			doc, err := q.docFac(item)
			if err != nil {
				return nil, fmt.Errorf("parsing patch: %w", err)
			}
			patches = append(patches, doc)
		}
	} else if target != nil {
		doc, err := q.docFac(target)
		if err != nil {
			return nil, fmt.Errorf("parsing patch: %w", err)
		}
		patches = append(patches, doc)
	}

	return func(d domain.Document) (domain.Document, error) {
		// later patches for the same identifier win
		for _, patch := range slices.Backward(patches) {
			if !patch.Has(domain.IDField) {
				continue
			}
			comp, err := q.cmpr.Compare(patch.ID(), d.ID())
			if err == nil && comp == 0 {
				return patch, nil
			}
		}
		return nil, nil
	}, nil
}

func (q *Querier) list(target any) ([]any, error) {
	switch t := target.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	case []domain.Document:
		res := make([]any, len(t))
		for n, v := range t {
			res[n] = v
		}
		return res, nil
	}
	r := goreflect.ValueNoEscapeOf(target)
	if r.Kind() != reflect.Slice && r.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a patch function or a list of patches, got %T", target)
	}
	res := make([]any, r.Len())
	for i := range r.Len() {
		res[i] = r.Index(i).Interface()
	}
	return res, nil
}
