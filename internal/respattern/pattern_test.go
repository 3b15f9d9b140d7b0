package respattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestParseAndMatch_Scenario5(t *testing.T) {
	spec, err := Parse("kafka-cluster:prod*,Topic:orders-*")
	require.NoError(t, err)

	assert.True(t, spec.Match(strptr("prod-east"), TypeTopic, "orders-42"))
	assert.False(t, spec.Match(strptr("dev"), TypeTopic, "orders-42"))
	assert.False(t, spec.Match(strptr("prod-east"), TypeGroup, "orders-42"))
}

func TestMatch_NoClusterClauseIgnoresClusterArg(t *testing.T) {
	spec, err := Parse("Topic:orders-*")
	require.NoError(t, err)

	assert.True(t, spec.Match(nil, TypeTopic, "orders-1"))
	assert.True(t, spec.Match(strptr("anything"), TypeTopic, "orders-1"))
	assert.False(t, spec.Match(nil, TypeTopic, "other"))
}

func TestMatch_ExactName(t *testing.T) {
	spec, err := Parse("Group:my-group")
	require.NoError(t, err)

	assert.True(t, spec.Match(nil, TypeGroup, "my-group"))
	assert.False(t, spec.Match(nil, TypeGroup, "my-group-2"))
}

func TestMatch_RequiresClusterWhenClausePresent(t *testing.T) {
	spec, err := Parse("kafka-cluster:prod,Cluster:*")
	require.NoError(t, err)

	assert.False(t, spec.Match(nil, TypeCluster, "anything"))
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"duplicate cluster", "kafka-cluster:a,kafka-cluster:b,Topic:x", ErrDuplicateClusterClause},
		{"duplicate resource", "Topic:x,Group:y", ErrDuplicateResourceClause},
		{"unknown type", "Frobnicator:x", ErrUnknownType},
		{"missing separator", "Topic", ErrMissingSeparator},
		{"missing resource clause", "kafka-cluster:prod", ErrMissingResourceClause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_CaseInsensitiveType(t *testing.T) {
	spec, err := Parse("TRANSACTIONALID:tid-*")
	require.NoError(t, err)
	assert.Equal(t, TypeTransactionalID, spec.Type())
}

func TestCanonicalRoundTrip(t *testing.T) {
	inputs := []string{
		"kafka-cluster:prod*,Topic:orders-*",
		"Group:my-group",
		"DelegationToken:*",
		"kafka-cluster:exact,Cluster:exact",
	}

	for _, in := range inputs {
		spec, err := Parse(in)
		require.NoError(t, err)

		canon1 := spec.Canonical()

		reparsed, err := Parse(canon1)
		require.NoError(t, err)

		canon2 := reparsed.Canonical()
		assert.Equal(t, canon1, canon2, "round-trip should be stable for %q", in)
	}
}
