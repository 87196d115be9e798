package conduit_test

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PentesterFlow/phabconduit/pkg/conduit"
)

func TestParamConstructors(t *testing.T) {
	assert.True(t, conduit.Param{}.IsZero())
	assert.Equal(t, conduit.KindString, conduit.String("x").Kind())
	assert.Equal(t, "42", conduit.Int(42).Str())
	assert.Equal(t, "1", conduit.Bool(true).Str())
	assert.Equal(t, "0", conduit.Bool(false).Str())

	list := conduit.Strings("a", "b")
	require.Equal(t, conduit.KindList, list.Kind())
	require.Equal(t, 2, list.Len())
	assert.Equal(t, "b", list.Items()[1].Str())
}

func TestParamSetKeepsPosition(t *testing.T) {
	p := conduit.Map(
		conduit.F("status", conduit.String("status-open")),
		conduit.F("ccPHIDs", conduit.Strings("PHID-USER-1")),
	)

	replaced := p.Set("status", conduit.String("resolved"))
	appended := p.Set("limit", conduit.Int(5))

	assert.Equal(t, []string{"status", "ccPHIDs"}, keys(replaced))
	assert.Equal(t, []string{"status", "ccPHIDs", "limit"}, keys(appended))

	got, ok := replaced.Get("status")
	require.True(t, ok)
	assert.Equal(t, "resolved", got.Str())

	// the original is untouched
	got, _ = p.Get("status")
	assert.Equal(t, "status-open", got.Str())
}

func TestParamMapDuplicateKeys(t *testing.T) {
	p := conduit.Map(
		conduit.F("a", conduit.String("1")),
		conduit.F("b", conduit.String("2")),
		conduit.F("a", conduit.String("3")),
	)

	assert.Equal(t, []string{"a", "b"}, keys(p))
	got, _ := p.Get("a")
	assert.Equal(t, "3", got.Str())
}

func TestParamMerge(t *testing.T) {
	base := conduit.Map(conduit.F("queryKey", conduit.String("upcoming")))
	merged := base.Merge(conduit.Map(
		conduit.F("limit", conduit.Int(10)),
		conduit.F("queryKey", conduit.String("all")),
	))

	assert.Equal(t, []string{"queryKey", "limit"}, keys(merged))
	got, _ := merged.Get("queryKey")
	assert.Equal(t, "all", got.Str())

	assert.Equal(t, 1, base.Merge(conduit.Param{}).Len())
}

func TestFromValue(t *testing.T) {
	p, err := conduit.FromValue(map[string]any{
		"zeta":  "z",
		"alpha": []any{"x", 7, true},
		"mid":   map[string]string{"k": "v"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, keys(p))
	alpha, _ := p.Get("alpha")
	require.Equal(t, 3, alpha.Len())
	assert.Equal(t, "7", alpha.Items()[1].Str())
	assert.Equal(t, "1", alpha.Items()[2].Str())
}

func TestFromValueRejectsUnsupported(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"float", 1.5},
		{"nil", nil},
		{"struct", struct{}{}},
		{"nested float", map[string]any{"a": []any{"x", 2.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := conduit.FromValue(tt.value)
			require.Error(t, err)
			assert.Equal(t, conduit.InvalidParams, conduit.GetErrorType(err))
		})
	}
}

func TestParseJSON(t *testing.T) {
	p, err := conduit.ParseJSON([]byte(`{"b": 1.50, "a": [true, "x"], "c": {"d": "e"}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, keys(p))
	b, _ := p.Get("b")
	assert.Equal(t, "1.50", b.Str())
	a, _ := p.Get("a")
	assert.Equal(t, "1", a.Items()[0].Str())
	assert.Equal(t, "x", a.Items()[1].Str())
}

func TestParseJSONDuplicateKeys(t *testing.T) {
	p, err := conduit.ParseJSON([]byte(`{"a": "1", "b": "2", "a": "3"}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, keys(p))
	a, _ := p.Get("a")
	assert.Equal(t, "3", a.Str())
}

func TestMapManyFields(t *testing.T) {
	const n = 20000
	fields := make([]conduit.Field, 0, n+1)
	for i := 0; i < n; i++ {
		fields = append(fields, conduit.F("k"+strconv.Itoa(i), conduit.Int(i)))
	}
	fields = append(fields, conduit.F("k0", conduit.String("last")))

	p := conduit.Map(fields...)
	require.Equal(t, n, p.Len())
	assert.Equal(t, "k0", p.Fields()[0].Key)
	assert.Equal(t, "last", p.Fields()[0].Value.Str())
	assert.Equal(t, "k19999", p.Fields()[n-1].Key)

	var b strings.Builder
	b.WriteString("{")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `"k%d": %d`, i, i)
	}
	b.WriteString("}")
	parsed, err := conduit.ParseJSON([]byte(b.String()))
	require.NoError(t, err)
	assert.Equal(t, n, parsed.Len())
}

func TestParseJSONErrors(t *testing.T) {
	for _, input := range []string{
		`{"a": null}`,
		`{"a": `,
		`{} x`,
	} {
		_, err := conduit.ParseJSON([]byte(input))
		assert.Error(t, err, input)
	}
}

func keys(p conduit.Param) []string {
	var out []string
	for _, f := range p.Fields() {
		out = append(out, f.Key)
	}
	return out
}
