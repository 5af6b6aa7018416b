package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep digests of different report kinds apart.
const (
	DomainGraph   = "eqsat/graph/v1"
	DomainRun     = "eqsat/run/v1"
	DomainRuleSet = "eqsat/ruleset/v1"
)

// Digest returns the hex SHA-256 of domain, a zero byte, and the canonical
// encoding of v.
func Digest(domain string, v Value) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GraphDigest is the content id of a graph report.
func GraphDigest(graph Object) (string, error) {
	return Digest(DomainGraph, graph)
}

// RunDigest is the content id of a run report.
func RunDigest(run Object) (string, error) {
	return Digest(DomainRun, run)
}

// RuleSetDigest is the content id of a rule-set report.
func RuleSetDigest(rules Object) (string, error) {
	return Digest(DomainRuleSet, rules)
}
