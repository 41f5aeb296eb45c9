package idgen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KirkDiggler/rpg-codex/internal/pkg/idgen"
)

func TestSequentialGenerator(t *testing.T) {
	gen := idgen.NewSequential("nav")
	assert.Equal(t, "nav_1", gen.Generate())
	assert.Equal(t, "nav_2", gen.Generate())

	bare := idgen.NewSequential("")
	assert.Equal(t, "1", bare.Generate())
}

func TestUUIDGenerator(t *testing.T) {
	gen := idgen.NewUUID("hist")
	first := gen.Generate()
	second := gen.Generate()

	assert.True(t, strings.HasPrefix(first, "hist_"))
	assert.NotEqual(t, first, second)
	assert.Len(t, idgen.NewUUID("").Generate(), 36)
}
