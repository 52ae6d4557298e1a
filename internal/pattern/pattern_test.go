package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"example.com/shop/domain", "example.com/shop/domain", true},
		{"example.com/shop/domain", "example.com/shop/domain/order", false},
		{"example.com/shop/domain/...", "example.com/shop/domain", true},
		{"example.com/shop/domain/...", "example.com/shop/domain/order/item", true},
		{"example.com/shop/domain/...", "example.com/shop/domainx", false},
		{".../request/...", "example.com/shop/usecase/order/request", true},
		{".../request/...", "example.com/shop/usecase/order/request/enums", true},
		{".../request/...", "example.com/shop/usecase/order/requests", false},
		{".../request", "example.com/shop/usecase/request", true},
		{".../request", "example.com/shop/usecase/request/x", false},
		{"example.com/*/domain", "example.com/shop/domain", true},
		{"example.com/*/domain", "example.com/a/b/domain", false},
		{"example.com/.../port", "example.com/port", true},
		{"example.com/.../.../port", "example.com/a/b/port", true},
		{"...", "anything/at/all", true},
		{"std", "fmt", true},
		{"std", "net/http", true},
		{"std", "github.com/x/y", false},
		{"example.com/shop", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.path, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(tt.path))
		})
	}
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile("")
	assert.Error(t, err)

	_, err = Compile("example.com/[shop")
	assert.Error(t, err)
}

func TestSet(t *testing.T) {
	s, err := CompileSet("example.com/shop/domain/...", "", "std")
	require.NoError(t, err)
	assert.Len(t, s, 2)
	assert.True(t, s.Match("time"))
	assert.True(t, s.Match("example.com/shop/domain/order"))
	assert.False(t, s.Match("github.com/google/uuid"))

	u := s.Union(MustSet("github.com/google/uuid"))
	assert.True(t, u.Match("github.com/google/uuid"))
	assert.Equal(t, "[example.com/shop/domain/..., std, github.com/google/uuid]", u.String())
}

func TestIsStandard(t *testing.T) {
	assert.True(t, IsStandard("unsafe"))
	assert.True(t, IsStandard("encoding/json"))
	assert.False(t, IsStandard("golang.org/x/sync/errgroup"))
	assert.False(t, IsStandard(""))
}

func TestMatchModule(t *testing.T) {
	s := MustSet("std")
	assert.True(t, s.Match("cleanarch/internal/entity"))
	assert.False(t, s.MatchModule("cleanarch/internal/entity", "cleanarch"))
	assert.False(t, s.MatchModule("cleanarch", "cleanarch"))
	assert.True(t, s.MatchModule("time", "cleanarch"))
	assert.True(t, s.MatchModule("time", ""))
	assert.True(t, MustSet("cleanarch/...").MatchModule("cleanarch/x", "cleanarch"))
}
