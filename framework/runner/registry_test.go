package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryPreservesOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add("b", func(*T) {}))
	require.NoError(t, r.Add("a", func(*T) {}))
	require.NoError(t, r.Add("c", func(*T) {}))

	var names []string
	for _, c := range r.Cases() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"b", "a", "c"}, names)
	assert.Equal(t, 3, r.Len())
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add("a", func(*T) {}))
	err := r.Add("a", func(*T) {})
	assert.EqualError(t, err, `duplicate test name "a"`)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRejectsInvalidCases(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Add("", func(*T) {}))
	assert.Error(t, r.Add("a", nil))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryMustAddPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry().MustAdd("a", func(*T) {})
	assert.Panics(t, func() { r.MustAdd("a", func(*T) {}) })
}

func TestRegistryZeroValueIsUsable(t *testing.T) {
	var r Registry
	require.NoError(t, r.Add("a", func(*T) {}))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryCasesIsACopy(t *testing.T) {
	r := NewRegistry().MustAdd("a", func(*T) {})
	cases := r.Cases()
	cases[0].Name = "changed"
	assert.Equal(t, "a", r.Cases()[0].Name)
}
