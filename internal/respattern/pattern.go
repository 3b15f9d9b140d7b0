// Package respattern implements the resource-pattern expression
// language used to match broker authorization rules against
// authorization requests: an optional cluster-name clause plus
// exactly one TYPE:PAT resource clause, each a prefix or exact match.
package respattern

import (
	"errors"
	"fmt"
	"strings"
)

// Type is a broker resource kind. Comparison against an incoming
// authorization check is by the uppercase enum name, case-insensitive
// on parse.
type Type string

const (
	TypeTopic           Type = "TOPIC"
	TypeGroup           Type = "GROUP"
	TypeCluster         Type = "CLUSTER"
	TypeTransactionalID Type = "TRANSACTIONAL_ID"
	TypeDelegationToken Type = "DELEGATION_TOKEN"
)

var typeAliases = map[string]Type{
	"topic":           TypeTopic,
	"group":           TypeGroup,
	"cluster":         TypeCluster,
	"transactionalid": TypeTransactionalID,
	"delegationtoken": TypeDelegationToken,
}

var (
	// ErrDuplicateClusterClause is returned when a pattern names the
	// cluster clause more than once.
	ErrDuplicateClusterClause = errors.New("respattern: duplicate cluster clause")
	// ErrDuplicateResourceClause is returned when a pattern names the
	// resource clause more than once.
	ErrDuplicateResourceClause = errors.New("respattern: duplicate resource clause")
	// ErrMissingResourceClause is returned when a pattern has no
	// TYPE:PAT resource clause at all.
	ErrMissingResourceClause = errors.New("respattern: missing resource clause")
	// ErrUnknownType is returned for a resource-type token the parser
	// doesn't recognize.
	ErrUnknownType = errors.New("respattern: unknown resource type")
	// ErrMissingSeparator is returned when a clause lacks the ":"
	// between its kind and pattern.
	ErrMissingSeparator = errors.New("respattern: missing TYPE:NAME separator")
)

const clusterKeyword = "kafka-cluster"

// matchPattern is a literal exact-match string or, if it ends in '*',
// a prefix match over the characters preceding the '*'.
type matchPattern struct {
	literal    string
	startsWith bool
}

func parseMatchPattern(s string) matchPattern {
	if strings.HasSuffix(s, "*") {
		return matchPattern{literal: strings.TrimSuffix(s, "*"), startsWith: true}
	}
	return matchPattern{literal: s, startsWith: false}
}

func (m matchPattern) match(s string) bool {
	if m.startsWith {
		return strings.HasPrefix(s, m.literal)
	}
	return s == m.literal
}

func (m matchPattern) canonical() string {
	if m.startsWith {
		return m.literal + "*"
	}
	return m.literal
}

// Spec is a parsed resource pattern: at most one cluster clause and
// exactly one resource clause.
type Spec struct {
	hasCluster   bool
	clusterMatch matchPattern

	resourceType Type
	nameMatch    matchPattern
}

// Parse parses the comma-separated concatenation of at most one
// cluster clause ("kafka-cluster:PAT") and exactly one resource
// clause ("TYPE:PAT").
func Parse(s string) (Spec, error) {
	var spec Spec
	haveResource := false

	for _, clause := range strings.Split(s, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		kind, pat, ok := strings.Cut(clause, ":")
		if !ok {
			return Spec{}, fmt.Errorf("%w: %q", ErrMissingSeparator, clause)
		}

		if strings.EqualFold(kind, clusterKeyword) {
			if spec.hasCluster {
				return Spec{}, fmt.Errorf("%w: %q", ErrDuplicateClusterClause, s)
			}
			spec.hasCluster = true
			spec.clusterMatch = parseMatchPattern(pat)
			continue
		}

		typ, ok := typeAliases[strings.ToLower(kind)]
		if !ok {
			return Spec{}, fmt.Errorf("%w: %q", ErrUnknownType, kind)
		}

		if haveResource {
			return Spec{}, fmt.Errorf("%w: %q", ErrDuplicateResourceClause, s)
		}
		haveResource = true
		spec.resourceType = typ
		spec.nameMatch = parseMatchPattern(pat)
	}

	if !haveResource {
		return Spec{}, fmt.Errorf("%w: %q", ErrMissingResourceClause, s)
	}

	return spec, nil
}

// Match reports whether the triple (cluster, typ, name) is matched by
// spec. A nil cluster is only acceptable when spec carries no cluster
// clause; typ and name must always be non-empty.
func (s Spec) Match(cluster *string, typ Type, name string) bool {
	if s.hasCluster {
		if cluster == nil {
			return false
		}
		if !s.clusterMatch.match(*cluster) {
			return false
		}
	}

	if typ == "" || typ != s.resourceType {
		return false
	}

	if name == "" {
		return false
	}

	return s.nameMatch.match(name)
}

// Canonical renders spec back into its comma-separated clause form,
// normalizing the resource-type token to lowercase-without-separators
// and preserving clause order (cluster, then resource).
func (s Spec) Canonical() string {
	var b strings.Builder

	if s.hasCluster {
		b.WriteString(clusterKeyword)
		b.WriteString(":")
		b.WriteString(s.clusterMatch.canonical())
		b.WriteString(",")
	}

	b.WriteString(strings.ToLower(strings.ReplaceAll(string(s.resourceType), "_", "")))
	b.WriteString(":")
	b.WriteString(s.nameMatch.canonical())

	return b.String()
}

// Type returns the resource type this spec matches.
func (s Spec) Type() Type {
	return s.resourceType
}
