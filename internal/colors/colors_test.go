package colors

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	color.NoColor = true
	on := true
	Init(&on)
	assert.True(t, Enabled())

	off := false
	Init(&off)
	assert.False(t, Enabled())

	Init(nil)
	assert.False(t, Enabled(), "nil keeps the current setting")
}

func TestPalette(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	color.NoColor = true
	assert.Equal(t, "3", Count(3))
	assert.Equal(t, "named", Namespace("named"))

	color.NoColor = false
	assert.True(t, strings.HasPrefix(Failed(1), "\x1b["))
	assert.Contains(t, Name("Entity"), "Entity")
}
