package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyString(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	key := NewKey("carbon-usage").
		With("org123").
		Time(start).
		Time(end).
		Optional("", "no-org").
		Optional("dept-7", "no-dept")

	assert.Equal(t, "carbon-usage:org123:2025-01-01T00:00:00Z:2025-01-31T00:00:00Z:~no-org:dept-7", key.String())
	assert.Equal(t, "carbon-usage", key.Namespace())
}

func TestKeyCanonicalTime(t *testing.T) {
	utc := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	berlin := utc.In(time.FixedZone("CET", 3600))

	assert.Equal(t,
		NewKey("carbon-offset").Time(utc).String(),
		NewKey("carbon-offset").Time(berlin).String(),
	)
}

func TestKeyDisambiguation(t *testing.T) {
	base := NewKey("carbon-usage").With("org123")

	tests := []struct {
		name string
		a, b Key
	}{
		{
			name: "department present vs absent",
			a:    base.Optional("dept-1", "no-dept"),
			b:    base.Optional("", "no-dept"),
		},
		{
			name: "literal placeholder value vs absent",
			a:    base.Optional("no-dept", "no-dept"),
			b:    base.Optional("", "no-dept"),
		},
		{
			name: "separator inside a part",
			a:    NewKey("carbon-usage").With("a:b").With("c"),
			b:    NewKey("carbon-usage").With("a").With("b:c"),
		},
		{
			name: "different date ranges",
			a:    base.Time(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
			b:    base.Time(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name: "different namespaces",
			a:    NewKey("carbon-usage").With("org123"),
			b:    NewKey("carbon-offset").With("org123"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, tt.a.String(), tt.b.String())
		})
	}
}

func TestKeyIsImmutable(t *testing.T) {
	base := NewKey("offset-history").With("org123")
	a := base.Int(10)
	b := base.Int(20)

	assert.Equal(t, "offset-history:org123", base.String())
	assert.Equal(t, "offset-history:org123:10", a.String())
	assert.Equal(t, "offset-history:org123:20", b.String())
}

func TestKeyFloat(t *testing.T) {
	assert.Equal(t, "carbon-estimate:12.5", NewKey("carbon-estimate").Float(12.5).String())
	assert.Equal(t, "carbon-estimate:1000", NewKey("carbon-estimate").Float(1000).String())
}
