// Package comparer orders and compares document values.
package comparer

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
)

// class is the rank of a value type. Values of different classes are ordered
// by rank: nil < numbers < strings < booleans < times < arrays < documents.
type class int

const (
	classNil class = iota
	classNumber
	classString
	classBool
	classTime
	classArray
	classDoc
	classUnknown
)

// Comparer implements domain.Comparer.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements domain.Comparer. Only numbers, strings and times
// are ordered within their class in a meaningful way.
func (c *Comparer) Comparable(a, b any) bool {
	ca, cb := c.classOf(a), c.classOf(b)
	if ca != cb {
		return false
	}
	return ca == classNumber || ca == classString || ca == classTime
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a, b any) (int, error) {
	ca, cb := c.classOf(a), c.classOf(b)
	if ca == classUnknown || cb == classUnknown {
		return 0, fmt.Errorf("cannot compare unexpected types %T and %T", a, b)
	}
	if ca != cb {
		return cmp.Compare(ca, cb), nil
	}

	switch ca {
	case classNumber:
		na, _ := c.asNumber(a)
		nb, _ := c.asNumber(b)
		// big.Float keeps int64 and float64 comparable without
		// precision loss
		return na.Cmp(nb), nil
	case classString:
		return cmp.Compare(a.(string), b.(string)), nil
	case classBool:
		return c.compareBool(a.(bool), b.(bool)), nil
	case classTime:
		return a.(time.Time).Compare(b.(time.Time)), nil
	case classArray:
		return c.compareArray(a.([]any), b.([]any))
	case classDoc:
		return c.compareDoc(a.(domain.Document), b.(domain.Document))
	default:
		return 0, nil
	}
}

func (c *Comparer) classOf(v any) class {
	if v == nil {
		return classNil
	}
	if _, ok := c.asNumber(v); ok {
		return classNumber
	}
	switch v.(type) {
	case string:
		return classString
	case bool:
		return classBool
	case time.Time:
		return classTime
	case []any:
		return classArray
	case domain.Document:
		return classDoc
	default:
		return classUnknown
	}
}

func (c *Comparer) compareArray(a, b []any) (int, error) {
	for i := range min(len(a), len(b)) {
		comp, err := c.Compare(a[i], b[i])
		if err != nil || comp != 0 {
			return comp, err
		}
	}
	// common section was identical, longest one wins
	return cmp.Compare(len(a), len(b)), nil
}

func (c *Comparer) compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

func (c *Comparer) compareDoc(a, b domain.Document) (int, error) {
	aKeys := slices.Sorted(a.Keys())
	bKeys := slices.Sorted(b.Keys())

	for i := range min(len(aKeys), len(bKeys)) {
		comp, err := c.Compare(a.Get(aKeys[i]), b.Get(bKeys[i]))
		if err != nil || comp != 0 {
			return comp, err
		}
	}

	if comp := cmp.Compare(len(aKeys), len(bKeys)); comp != 0 {
		return comp, nil
	}

	return slices.Compare(aKeys, bKeys), nil
}

func (c *Comparer) asNumber(v any) (*big.Float, bool) {
	r := big.NewFloat(0)
	switch n := v.(type) {
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		r.SetFloat64(float64(n))
	case float64:
		r.SetFloat64(n)
	default:
		return nil, false
	}
	return r, true
}
