package opt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Username string `json:"username"`
}

func TestNone(t *testing.T) {
	assert.False(t, None[string]().IsDefined())
	assert.Equal(t, "", None[string]().Value())
	assert.Equal(t, row{}, None[row]().Value())

	v, ok := None[int]().Get()
	assert.False(t, ok)
	assert.Equal(t, 0, v)
}

func TestSome(t *testing.T) {
	assert.True(t, Some("").IsDefined())
	assert.Equal(t, row{Username: "dbuser"}, Some(row{Username: "dbuser"}).Value())

	v, ok := Some(3).Get()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestOrElse(t *testing.T) {
	assert.Equal(t, 3, None[int]().OrElse(3))
	assert.Equal(t, 4, Some(4).OrElse(3))
}

type named struct{}

func (named) String() string { return "named" }

func TestString(t *testing.T) {
	assert.Equal(t, "[none]", None[int]().String())
	assert.Equal(t, "12", Some(12).String())
	assert.Equal(t, "named", Some(named{}).String())
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Some(row{Username: "keeper"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"keeper"}`, string(data))

	data, err = json.Marshal(None[row]())
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}
