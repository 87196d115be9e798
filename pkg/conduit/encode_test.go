package conduit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PentesterFlow/phabconduit/pkg/conduit"
	"github.com/PentesterFlow/phabconduit/pkg/conduit/conduittest"
)

func pairs(kv ...string) []conduit.Pair {
	out := make([]conduit.Pair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, conduit.Pair{Name: kv[i], Value: kv[i+1]})
	}
	return out
}

func TestEncodeFlatMapKeepsOrder(t *testing.T) {
	p := conduit.Map(
		conduit.F("zeta", conduit.String("1")),
		conduit.F("alpha", conduit.String("2")),
		conduit.F("mid", conduit.String("3")),
	)

	assert.Equal(t, pairs("zeta", "1", "alpha", "2", "mid", "3"), conduit.Encode(p))
}

func TestEncodeNested(t *testing.T) {
	p := conduit.Map(conduit.F("transactions", conduit.List(
		conduit.Map(
			conduit.F("type", conduit.String("custom.text")),
			conduit.F("value", conduit.String("hi")),
		),
	)))

	assert.Equal(t,
		pairs("transactions[0][type]", "custom.text", "transactions[0][value]", "hi"),
		conduit.Encode(p))
}

func TestEncodeDeep(t *testing.T) {
	p := conduit.Map(
		conduit.F("constraints", conduit.Map(
			conduit.F("subscribers", conduit.Strings("PHID-A", "PHID-B")),
			conduit.F("matrix", conduit.List(conduit.Strings("x"), conduit.Strings("y", "z"))),
		)),
	)

	assert.Equal(t, pairs(
		"constraints[subscribers][0]", "PHID-A",
		"constraints[subscribers][1]", "PHID-B",
		"constraints[matrix][0][0]", "x",
		"constraints[matrix][1][0]", "y",
		"constraints[matrix][1][1]", "z",
	), conduit.Encode(p))
}

func TestEncodeEmptyContainers(t *testing.T) {
	assert.Empty(t, conduit.Encode(conduit.Param{}))
	assert.Empty(t, conduit.Encode(conduit.Map()))
	assert.Empty(t, conduit.Encode(conduit.List()))

	p := conduit.Map(
		conduit.F("a", conduit.Map()),
		conduit.F("b", conduit.List()),
		conduit.F("c", conduit.List(conduit.Map(), conduit.String("x"))),
	)
	assert.Equal(t, pairs("c[1]", "x"), conduit.Encode(p))
}

func TestEncodeTopLevelList(t *testing.T) {
	assert.Equal(t, pairs("[0]", "x", "[1]", "y"), conduit.Encode(conduit.Strings("x", "y")))
}

func TestEncodeDoesNotEscape(t *testing.T) {
	p := conduit.Map(conduit.F("message", conduit.String("a b&c=d%")))
	assert.Equal(t, pairs("message", "a b&c=d%"), conduit.Encode(p))
}

func TestManualBody(t *testing.T) {
	assert.Equal(t, "api.token=tok", conduit.ManualBody("tok", conduit.Param{}))
	assert.Equal(t, "api.token=tok", conduit.ManualBody("tok", conduit.Map()))

	body := conduit.ManualBody("tok", conduit.Map(
		conduit.F("id", conduit.String("7")),
		conduit.F("message", conduit.String("one\ntwo")),
	))
	assert.Equal(t, "api.token=tok&id=7&message=one\ntwo", body)
}

func TestManualBodyStartsWithToken(t *testing.T) {
	trees := []conduit.Param{
		{},
		conduit.Map(conduit.F("api.token", conduit.String("other"))),
		conduit.Strings("a"),
		conduit.Map(conduit.F("x", conduit.Map(conduit.F("y", conduit.String("z"))))),
	}
	for _, tree := range trees {
		body := conduit.ManualBody("secret", tree)
		assert.Equal(t, "api.token=secret", conduittest.SplitBody(body)[0].String())
	}
}

func TestStandardBody(t *testing.T) {
	body, err := conduit.StandardBody("tok", conduit.Map(
		conduit.F("slug", conduit.String("projects/ops")),
		conduit.F("content", conduit.String("x y&z")),
	))
	require.NoError(t, err)
	assert.Equal(t, "slug=projects%2Fops&content=x+y%26z&api.token=tok", body)

	body, err = conduit.StandardBody("tok", conduit.Param{})
	require.NoError(t, err)
	assert.Equal(t, "api.token=tok", body)
}

func TestStandardBodyReplacesTokenInPlace(t *testing.T) {
	body, err := conduit.StandardBody("tok", conduit.Map(
		conduit.F("api.token", conduit.String("stale")),
		conduit.F("x", conduit.String("1")),
	))
	require.NoError(t, err)
	assert.Equal(t, "api.token=tok&x=1", body)
}

func TestStandardBodyRejectsNesting(t *testing.T) {
	_, err := conduit.StandardBody("tok", conduit.Map(conduit.F("ids", conduit.Strings("1"))))
	require.Error(t, err)
	assert.Equal(t, conduit.InvalidParams, conduit.GetErrorType(err))

	_, err = conduit.StandardBody("tok", conduit.String("x"))
	assert.Equal(t, conduit.InvalidParams, conduit.GetErrorType(err))
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a~b_c.d-e/f", "a~b_c.d-e/f"},
		{"hello world & more", "hello%20world%20%26%20more"},
		{"50%=half", "50%25%3Dhalf"},
		{"α", "%CE%B1"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, conduit.Quote(tt.in), tt.in)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	trees := []conduit.Param{
		conduit.Map(conduit.F("status", conduit.String("status-open"))),
		conduit.Map(
			conduit.F("transactions", conduit.List(
				conduit.Map(
					conduit.F("type", conduit.String("custom.text")),
					conduit.F("value", conduit.String("hi")),
				),
				conduit.Map(
					conduit.F("type", conduit.String("title")),
					conduit.F("value", conduit.String("New")),
				),
			)),
			conduit.F("objectIdentifier", conduit.String("PHID-DSHP-1")),
		),
		conduit.Map(
			conduit.F("queryKey", conduit.String("upcoming")),
			conduit.F("constraints", conduit.Map(
				conduit.F("subscribers", conduit.Strings("PHID-USER-1", "PHID-USER-2")),
				conduit.F("empty", conduit.Map()),
			)),
		),
	}

	for _, tree := range trees {
		decoded, err := conduittest.DecodeBrackets(conduit.Encode(tree))
		require.NoError(t, err)
		assert.Equal(t, conduittest.Normalize(tree), decoded)
	}
}
