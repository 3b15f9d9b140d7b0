package jsonpath

import (
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"
)

// FilterSet is a named collection of pre-parsed filter queries,
// authored as a HuJSON document (JSON-with-comments, the same format
// policyv2 uses for ACL files) so operators can document why a given
// claims filter exists. This is an ambient convenience layered on top
// of Parse/Matcher; it carries no evaluation semantics of its own.
type FilterSet struct {
	matchers map[string]*Matcher
}

// LoadFilterSet parses a HuJSON document of the form
// { "name": "query string", ... } into a FilterSet, eagerly parsing
// every query so later lookups can never fail on a bad query string.
func LoadFilterSet(doc []byte) (*FilterSet, error) {
	standardized, err := hujson.Standardize(doc)
	if err != nil {
		return nil, fmt.Errorf("jsonpath: standardizing filter set document: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(standardized, &raw); err != nil {
		return nil, fmt.Errorf("jsonpath: decoding filter set document: %w", err)
	}

	fs := &FilterSet{matchers: make(map[string]*Matcher, len(raw))}
	for name, query := range raw {
		m, err := NewMatcher(query)
		if err != nil {
			return nil, fmt.Errorf("jsonpath: filter %q: %w", name, err)
		}
		fs.matchers[name] = m
	}

	return fs, nil
}

// Get returns the named matcher, or nil if no such filter was
// defined.
func (fs *FilterSet) Get(name string) *Matcher {
	return fs.matchers[name]
}

// Names returns the defined filter names.
func (fs *FilterSet) Names() []string {
	names := make([]string, 0, len(fs.matchers))
	for name := range fs.matchers {
		names = append(names, name)
	}
	return names
}
