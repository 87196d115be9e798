package conduit_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PentesterFlow/phabconduit/pkg/conduit"
)

func TestResultEachKeepsServerOrder(t *testing.T) {
	res := conduit.NewResult([]byte(`{"PHID-TASK-b": {"id": "2"}, "PHID-TASK-a": {"id": "1"}, "PHID-TASK-c": {"id": "3"}}`))

	assert.Equal(t, []string{"PHID-TASK-b", "PHID-TASK-a", "PHID-TASK-c"}, res.Keys())
	assert.Equal(t, 3, res.Len())
}

func TestResultEachArray(t *testing.T) {
	res := conduit.NewResult([]byte(`["x", "y"]`))

	var got []string
	require.NoError(t, res.Each(func(k string, v conduit.Result) error {
		var s string
		require.NoError(t, v.Decode(&s))
		got = append(got, k+"="+s)
		return nil
	}))
	assert.Equal(t, []string{"0=x", "1=y"}, got)
}

func TestResultEmptyShapes(t *testing.T) {
	for _, raw := range []string{`[]`, `{}`, `null`, `"scalar"`, `42`} {
		res := conduit.NewResult([]byte(raw))
		assert.Zero(t, res.Len(), raw)
	}
	assert.True(t, conduit.NewResult([]byte("null")).IsNull())
	assert.False(t, conduit.NewResult([]byte("[]")).IsNull())
}

func TestResultEachStops(t *testing.T) {
	res := conduit.NewResult([]byte(`{"a": 1, "b": 2}`))
	boom := errors.New("boom")

	calls := 0
	err := res.Each(func(string, conduit.Result) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestResultNavigation(t *testing.T) {
	res := conduit.NewResult([]byte(`{"data": [{"phid": "PHID-PROJ-1", "name": "Ops", "id": 12}], "cursor": {"after": null}}`))

	assert.Equal(t, "PHID-PROJ-1", res.Get("data.0.phid").Str())
	assert.Equal(t, 12, res.Get("data.0.id").Int())
	assert.Equal(t, "Ops", res.Str("data.0.name"))
	assert.Equal(t, "", res.Str("data.1.name"))
	assert.True(t, res.Get("cursor.after").Nil())

	data, ok := res.Field("data")
	require.True(t, ok)
	assert.Equal(t, 1, data.Len())

	_, ok = res.Field("missing")
	assert.False(t, ok)
}

func TestResultDecodeInvalid(t *testing.T) {
	var n int
	err := conduit.NewResult([]byte(`"text"`)).Decode(&n)
	assert.True(t, conduit.IsDecodeError(err))
}

func TestResultLookupMalformed(t *testing.T) {
	res := conduit.NewResult([]byte(`{"slugMap": {"ops": `))

	_, ok, err := res.Lookup("data")
	assert.False(t, ok)
	assert.True(t, conduit.IsDecodeError(err))

	_, ok = res.Field("data")
	assert.False(t, ok)
	assert.Nil(t, res.Keys())
	assert.Zero(t, res.Len())
}
