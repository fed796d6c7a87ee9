package helpers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testTarget struct {
	values []string
}

type testOption ConfigOption[testTarget]

func addValue(s string) testOption {
	return ConfigOptionFunc[testTarget](func(t *testTarget) error {
		t.values = append(t.values, s)
		return nil
	})
}

func TestApplyOptions(t *testing.T) {
	var target testTarget
	assert.NoError(t, ApplyOptions(&target, addValue("a"), nil, addValue("b")))
	assert.Equal(t, []string{"a", "b"}, target.values)
}

func TestApplyOptionsStopsAtFirstError(t *testing.T) {
	fail := ConfigOptionFunc[testTarget](func(*testTarget) error { return errors.New("bad option") })

	var target testTarget
	err := ApplyOptions[testTarget, testOption](&target, addValue("a"), fail, addValue("b"))
	assert.EqualError(t, err, "bad option")
	assert.Equal(t, []string{"a"}, target.values)
}
