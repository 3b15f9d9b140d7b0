package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMatch(t *testing.T, query, doc string) bool {
	t.Helper()
	m, err := NewMatcher(query)
	require.NoError(t, err)
	ok, err := m.Matches([]byte(doc))
	require.NoError(t, err)
	return ok
}

func TestScenario1_SimpleEquality(t *testing.T) {
	q := `$[?(@.iss == 'http://host/')]`
	assert.True(t, mustMatch(t, q, `{"iss":"http://host/"}`))
	assert.False(t, mustMatch(t, q, `{"iss":"other"}`))
	assert.False(t, mustMatch(t, q, `{}`))
}

func TestScenario2_NumericEqualityAcrossRepresentations(t *testing.T) {
	q := `[?(@.n == 1.0)]`
	assert.True(t, mustMatch(t, q, `{"n":1}`))
	assert.False(t, mustMatch(t, q, `{"n":"1"}`))
}

func TestScenario3_Containment(t *testing.T) {
	q := `[?('admin' in @.roles)]`
	assert.True(t, mustMatch(t, q, `{"roles":["user","admin"]}`))
	assert.False(t, mustMatch(t, q, `{"roles":"admin"}`))
	assert.False(t, mustMatch(t, q, `{}`))
}

func TestScenario4_ConnectorsWithShortCircuit(t *testing.T) {
	q := `[?(@.a == 1 and (@.b == 2 or @.c == 3))]`
	assert.True(t, mustMatch(t, q, `{"a":1,"c":3}`))
	assert.False(t, mustMatch(t, q, `{"a":1,"b":5,"c":5}`))
	assert.False(t, mustMatch(t, q, `{"a":2,"b":2}`))
}

func TestAlwaysTrueShorthand(t *testing.T) {
	assert.True(t, mustMatch(t, "@.*", `{"anything":"at all"}`))
	assert.True(t, mustMatch(t, "@.*", `{}`))
}

func TestNullEquality(t *testing.T) {
	assert.True(t, mustMatch(t, `[?(@.x == null)]`, `{}`))
	assert.True(t, mustMatch(t, `[?(@.x == null)]`, `{"x":null}`))
	assert.False(t, mustMatch(t, `[?(@.x == null)]`, `{"x":1}`))
}

func TestOrderedCompare(t *testing.T) {
	assert.True(t, mustMatch(t, `[?(@.n < 5)]`, `{"n":3}`))
	assert.False(t, mustMatch(t, `[?(@.n < 5)]`, `{"n":7}`))
	assert.True(t, mustMatch(t, `[?(@.s < "banana")]`, `{"s":"apple"}`))
	// Mismatched types are an evaluation error, folded to false.
	assert.False(t, mustMatch(t, `[?(@.n < 5)]`, `{"n":"nope"}`))
}

func TestEqualityLawNegation(t *testing.T) {
	queries := []struct {
		doc string
	}{
		{`{"a":1}`}, {`{"a":2}`}, {`{}`},
	}
	for _, tc := range queries {
		eq := mustMatch(t, `[?(@.a == 1)]`, tc.doc)
		neq := mustMatch(t, `[?(@.a != 1)]`, tc.doc)
		assert.Equal(t, eq, !neq, "doc=%s", tc.doc)
	}
}

func TestOrderedLawNegation(t *testing.T) {
	docs := []string{`{"n":1}`, `{"n":5}`, `{"n":9}`}
	for _, doc := range docs {
		lt := mustMatch(t, `[?(@.n < 5)]`, doc)
		gte := mustMatch(t, `[?(@.n >= 5)]`, doc)
		assert.Equal(t, lt, !gte, "doc=%s", doc)

		gt := mustMatch(t, `[?(@.n > 5)]`, doc)
		lte := mustMatch(t, `[?(@.n <= 5)]`, doc)
		assert.Equal(t, gt, !lte, "doc=%s", doc)
	}
}

func TestDeepSegmentRejectedAsFalse(t *testing.T) {
	assert.False(t, mustMatch(t, `[?(@..deep == 1)]`, `{"deep":1}`))
}

func TestRegexNotImplementedFoldsFalse(t *testing.T) {
	assert.False(t, mustMatch(t, `[?(@.x =~ "foo")]`, `{"x":"foo"}`))
}

func TestAnyOfAndNoneOf(t *testing.T) {
	q := `[?(@.roles anyof ["admin","root"])]`
	assert.True(t, mustMatch(t, q, `{"roles":["user","admin"]}`))
	assert.False(t, mustMatch(t, q, `{"roles":["user","guest"]}`))

	qNone := `[?(@.roles noneof ["admin","root"])]`
	assert.False(t, mustMatch(t, qNone, `{"roles":["user","admin"]}`))
	assert.True(t, mustMatch(t, qNone, `{"roles":["user","guest"]}`))
}

func TestMatchesIsPureAndDeterministic(t *testing.T) {
	m, err := NewMatcher(`[?(@.a == 1 and @.b == 2)]`)
	require.NoError(t, err)

	doc := []byte(`{"a":1,"b":2}`)
	first, err := m.Matches(doc)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := m.Matches(doc)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMatcherConcurrentUse(t *testing.T) {
	m, err := NewMatcher(`[?(@.a == 1)]`)
	require.NoError(t, err)

	done := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		go func(i int) {
			doc := []byte(`{"a":1}`)
			ok, err := m.Matches(doc)
			done <- err == nil && ok
		}(i)
	}
	for i := 0; i < 50; i++ {
		assert.True(t, <-done)
	}
}
