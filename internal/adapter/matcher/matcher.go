// Package matcher implements partial-object containment matching.
package matcher

import (
	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
)

// Matcher implements [domain.Matcher]. A value matches a pattern when every
// field of the pattern is present in the value with an equal primitive, an
// array sharing at least one element or a recursively matching document.
type Matcher struct {
	documentFactory domain.DocumentFactory
	comparer        domain.Comparer
}

// NewMatcher returns a new implementation of domain.Matcher.
func NewMatcher(options ...domain.MatcherOption) domain.Matcher {
	opts := domain.MatcherOptions{
		DocumentFactory: data.NewDocument,
		Comparer:        comparer.NewComparer(),
	}
	for _, option := range options {
		option(&opts)
	}

	return &Matcher{
		documentFactory: opts.DocumentFactory,
		comparer:        opts.Comparer,
	}
}

// Match implements [domain.Matcher]. A nil pattern matches everything.
func (m *Matcher) Match(val any, qry any) (bool, error) {
	if qry == nil {
		return true, nil
	}
	doc, ok := val.(domain.Document)
	if !ok {
		return false, nil
	}
	pattern, ok := qry.(domain.Document)
	if !ok {
		var err error
		if pattern, err = m.documentFactory(qry); err != nil {
			return false, err
		}
	}
	return m.includes(doc, pattern), nil
}

func (m *Matcher) includes(doc, pattern domain.Document) bool {
	for k, want := range pattern.Iter() {
		if !doc.Has(k) {
			return false
		}
		if !m.matchValue(doc.Get(k), want) {
			return false
		}
	}
	return true
}

func (m *Matcher) matchValue(got, want any) bool {
	switch w := want.(type) {
	case nil:
		return got == nil
	case domain.Document:
		g, ok := got.(domain.Document)
		return ok && m.includes(g, w)
	case []any:
		g, ok := got.([]any)
		if !ok {
			return false
		}
		for _, item := range w {
			if m.contains(g, item) {
				return true
			}
		}
		return false
	default:
		if _, isDoc := got.(domain.Document); isDoc {
			return false
		}
		if _, isArr := got.([]any); isArr {
			return false
		}
		return m.equal(got, want)
	}
}

func (m *Matcher) contains(list []any, v any) bool {
	for _, item := range list {
		if m.equal(item, v) {
			return true
		}
	}
	return false
}

func (m *Matcher) equal(a, b any) bool {
	comp, err := m.comparer.Compare(a, b)
	return err == nil && comp == 0
}
