package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValidForms(t *testing.T) {
	for _, q := range []string{
		`@.*`,
		`$[?(@.a == 1)]`,
		`[?(@.a == 1)]`,
		`[?(@.a == 1 and @.b == 2)]`,
		`[?((@.a == 1 or @.b == 2) and @.c == 3)]`,
		`[?(@.a in [1,2,3])]`,
		`[?(@.a nin ['x','y'])]`,
	} {
		_, err := Parse(q)
		assert.NoError(t, err, "query=%s", q)
	}
}

func TestParse_ReportsPositionOnFailure(t *testing.T) {
	_, err := Parse(`[?(@.a ===)]`)
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Greater(t, perr.Pos, 0)
}

func TestParse_RejectsMalformedWrapper(t *testing.T) {
	_, err := Parse(`@.a == 1`)
	require.Error(t, err)
}

func TestParse_RejectsUnterminatedString(t *testing.T) {
	_, err := Parse(`[?(@.a == 'unterminated)]`)
	require.Error(t, err)
}

func TestParse_RejectsTrailingGarbage(t *testing.T) {
	_, err := Parse(`[?(@.a == 1) ]] extra`)
	require.Error(t, err)
}

func TestParse_AcceptsWhitespaceInsensitively(t *testing.T) {
	tight, err := Parse(`[?(@.a==1)]`)
	require.NoError(t, err)

	loose, err := Parse(`[?(   @.a   ==   1   )]`)
	require.NoError(t, err)

	assert.Equal(t, tight.Root.Exprs[0].Leaf.Op, loose.Root.Exprs[0].Leaf.Op)
}
