// Package deserializer contains the default [domain.Deserializer]
// implementation.
package deserializer

import (
	"context"
	"time"

	"github.com/vinicius-lino-figueiredo/kvdb/domain"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/kvdb/internal/adapter/serializer"
)

// NewDeserializer returns a new instance of domain.Deserializer.
func NewDeserializer(decoder domain.Decoder) domain.Deserializer {
	return &Deserializer{
		decoder: decoder,
	}
}

// Deserializer implements domain.Deserializer. It reverses the format written
// by the default serializer.
type Deserializer struct {
	decoder domain.Decoder
}

// Deserialize implements domain.Deserializer. A *any target receives the raw
// parsed value; any other target is filled by the decoder.
func (d *Deserializer) Deserialize(ctx context.Context, b []byte, target any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if target == nil {
		return domain.ErrTargetNil
	}

	v, err := data.Parse(b)
	if err != nil {
		return err
	}
	v = d.convertAny(v)

	if p, ok := target.(*any); ok {
		*p = v
		return nil
	}
	return d.decoder.Decode(v, target)
}

func (d *Deserializer) convertAny(v any) any {
	switch t := v.(type) {
	case data.M:
		if ms, ok := d.date(t); ok {
			return time.UnixMilli(ms)
		}
		for k, v := range t {
			t[k] = d.convertAny(v)
		}
		return t
	case []any:
		for n, i := range t {
			t[n] = d.convertAny(i)
		}
		return t
	default:
		return v
	}
}

func (d *Deserializer) date(doc data.M) (int64, bool) {
	if len(doc) != 1 {
		return 0, false
	}
	switch ms := doc[serializer.DateKey].(type) {
	case int64:
		return ms, true
	case float64:
		return int64(ms), true
	default:
		return 0, false
	}
}
