package hierarchy

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// PlayerEntity -> LivingEntity -> Entity (implements EntityLike)
// EntityLike declares getUuid(); Entity redeclares it.
func testProvider() *MapProvider {
	return NewMapProvider(
		&TypeInfo{Name: "net/minecraft/world/EntityLike", Interface: true, Methods: []Method{
			{Name: "getUuid", Descriptor: "()Ljava/util/UUID;"},
		}},
		&TypeInfo{Name: "net/minecraft/entity/Entity", Super: "java/lang/Object", Interfaces: []string{"net/minecraft/world/EntityLike"}, Methods: []Method{
			{Name: "getUuid", Descriptor: "()Ljava/util/UUID;"},
			{Name: "setPos", Descriptor: "(DDD)V"},
		}},
		&TypeInfo{Name: "net/minecraft/entity/LivingEntity", Super: "net/minecraft/entity/Entity", Methods: []Method{
			{Name: "tick", Descriptor: "()V"},
		}},
		&TypeInfo{Name: "net/minecraft/entity/player/PlayerEntity", Super: "net/minecraft/entity/LivingEntity"},
		&TypeInfo{Name: "net/minecraft/util/Formatting", Super: "java/lang/Enum", Enum: true},
	)
}

func TestDeclaringType(t *testing.T) {
	r := NewResolver(testProvider())

	tests := []struct {
		name   string
		owner  string
		method string
		params []string
		want   string
	}{
		{"interface wins over class", "net/minecraft/entity/player/PlayerEntity", "getUuid", nil, "net/minecraft/world/EntityLike"},
		{"superclass chain", "net/minecraft/entity/player/PlayerEntity", "setPos", []string{"D", "D", "D"}, "net/minecraft/entity/Entity"},
		{"params must match", "net/minecraft/entity/player/PlayerEntity", "setPos", []string{"D"}, "net/minecraft/entity/player/PlayerEntity"},
		{"declared on parent", "net/minecraft/entity/player/PlayerEntity", "tick", nil, "net/minecraft/entity/LivingEntity"},
		{"unknown owner", "com/example/Unknown", "tick", nil, "com/example/Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.DeclaringType(tt.owner, tt.method, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// deterministic
			again, err := r.DeclaringType(tt.owner, tt.method, tt.params)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestInterfacesPreferred(t *testing.T) {
	p := NewMapProvider(
		&TypeInfo{Name: "a/Iface", Interface: true, Methods: []Method{{Name: "run", Descriptor: "()V"}}},
		&TypeInfo{Name: "a/Base", Methods: []Method{{Name: "run", Descriptor: "()V"}}},
		&TypeInfo{Name: "a/Impl", Super: "a/Base", Interfaces: []string{"a/Iface"}},
	)
	got, err := NewResolver(p).DeclaringType("a/Impl", "run", nil)
	require.NoError(t, err)
	assert.Equal(t, "a/Iface", got)
}

func TestCyclicProvider(t *testing.T) {
	p := NewMapProvider(
		&TypeInfo{Name: "a/A", Super: "a/B", Methods: []Method{{Name: "run", Descriptor: "()V"}}},
		&TypeInfo{Name: "a/B", Super: "a/A", Methods: []Method{{Name: "run", Descriptor: "()V"}}},
	)
	got, err := NewResolver(p).DeclaringType("a/A", "run", nil)
	require.NoError(t, err)
	assert.Equal(t, "a/B", got)
}

type brokenProvider struct{ *MapProvider }

func (brokenProvider) Interfaces(string) ([]string, error) {
	return nil, errors.New("disk on fire")
}

func TestProviderErrors(t *testing.T) {
	_, err := NewResolver(brokenProvider{testProvider()}).DeclaringType("a/A", "run", nil)
	assert.Error(t, err)
}

func TestIsEnum(t *testing.T) {
	r := NewResolver(testProvider())
	assert.True(t, r.IsEnum("net/minecraft/util/Formatting"))
	assert.False(t, r.IsEnum("net/minecraft/entity/Entity"))
	assert.False(t, r.IsEnum("missing/Type"))

	var nilResolver *Resolver
	assert.False(t, nilResolver.IsEnum("net/minecraft/util/Formatting"))
}

func TestChain(t *testing.T) {
	first := NewMapProvider(&TypeInfo{Name: "a/A", Super: "a/B"})
	second := NewMapProvider(&TypeInfo{Name: "a/B", Methods: []Method{{Name: "run", Descriptor: "(I)V"}}})
	chain := Chain{first, second}

	got, err := NewResolver(chain).DeclaringType("a/A", "run", []string{"I"})
	require.NoError(t, err)
	assert.Equal(t, "a/B", got)

	_, err = chain.Superclass("a/C")
	assert.ErrorIs(t, err, ErrTypeNotFound)
}

func TestTypeTableRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testProvider().WriteTypes(&buf))
	assert.Contains(t, buf.String(), "name: net/minecraft/entity/Entity")

	p, err := ReadTypes(&buf)
	require.NoError(t, err)
	assert.Equal(t, testProvider().Types(), p.Types())

	super, err := p.Superclass("net/minecraft/world/EntityLike")
	require.NoError(t, err)
	assert.Empty(t, super)

	_, err = ReadTypes(strings.NewReader("types:\n  - super: a/B\n"))
	assert.Error(t, err)
}
