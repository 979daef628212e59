package factors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCopiesInput(t *testing.T) {
	src := map[string]interface{}{"model": "haiku", "temperature": 0.7}
	suit := New(src)

	src["model"] = "sonnet"

	v, ok := suit.Value("model")
	require.True(t, ok)
	assert.Equal(t, "haiku", v)
}

func TestWithReturnsNewSuit(t *testing.T) {
	base := New(map[string]interface{}{"model": "haiku"})
	updated := base.With("temperature", 0.2)

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, updated.Len())
	assert.False(t, base.Has("temperature"))

	v, ok := updated.Value("temperature")
	require.True(t, ok)
	assert.Equal(t, 0.2, v)
}

func TestWithOverridesExisting(t *testing.T) {
	base := New(map[string]interface{}{"temperature": 0.7})
	updated := base.With("temperature", 0.3)

	v, _ := base.Value("temperature")
	assert.Equal(t, 0.7, v)
	v, _ = updated.Value("temperature")
	assert.Equal(t, 0.3, v)
}

func TestNamesSorted(t *testing.T) {
	suit := New(map[string]interface{}{"z": 1, "a": 2, "m": 3})
	assert.Equal(t, []string{"a", "m", "z"}, suit.Names())
}

func TestEqualByContent(t *testing.T) {
	a := New(map[string]interface{}{"model": "haiku", "temperature": 0.7})
	b := Empty().With("temperature", 0.7).With("model", "haiku")
	c := a.With("temperature", 0.8)

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Empty()))
}

func TestFingerprintStableAndContentBased(t *testing.T) {
	a := New(map[string]interface{}{"model": "haiku", "temperature": 0.7})
	b := New(map[string]interface{}{"temperature": 0.7, "model": "haiku"})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), a.With("temperature", 0.8).Fingerprint())
}

func TestMapIsDetached(t *testing.T) {
	suit := New(map[string]interface{}{"model": "haiku"})
	m := suit.Map()
	m["model"] = "sonnet"

	v, _ := suit.Value("model")
	assert.Equal(t, "haiku", v)
}

func TestString(t *testing.T) {
	suit := New(map[string]interface{}{"b": 2, "a": 1})
	assert.Equal(t, "{a=1, b=2}", suit.String())
}
