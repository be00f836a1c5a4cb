// Package matching matches inbound external contact records against local
// persons: stored resource id first, then normalized full-name equality, then
// nickname equivalence. Unmatched records become new persons.
package matching

import (
	"strings"

	"github.com/perunhq/blackbook-sync/pkg/contacts"
	"github.com/perunhq/blackbook-sync/pkg/models"
	"github.com/perunhq/blackbook-sync/pkg/nicknames"
	"github.com/perunhq/blackbook-sync/pkg/normalizers"
)

// MatchKind reports which rule produced a match.
type MatchKind string

const (
	MatchByResourceID MatchKind = "resource_id"
	MatchByName       MatchKind = "name"
	MatchByNickname   MatchKind = "nickname"
	MatchNone         MatchKind = "none"
)

// Matcher resolves external records to local persons.
type Matcher struct {
	nicknames *nicknames.Index
}

// NewMatcher creates a matcher backed by a nickname index.
func NewMatcher(idx *nicknames.Index) *Matcher {
	return &Matcher{nicknames: idx}
}

// Match finds the local person for an external record from the given account.
// Returns nil with MatchNone when the record should create a new person.
// The name tiers never claim a person already mapped to a different resource
// in the same account: that account knows the person under another id, so the
// record is someone else who happens to share the name.
func (m *Matcher) Match(people []*models.Person, accountID string, rec contacts.Record) (*models.Person, MatchKind) {
	// 1. Stored resource id
	for _, p := range people {
		if id, ok := p.ResourceID(accountID); ok && id == rec.ResourceID {
			return p, MatchByResourceID
		}
	}

	// 2. Exact normalized full-name equality
	name := normalizers.NormalizeName(rec.FullName)
	if name != "" {
		for _, p := range people {
			if mappedElsewhere(p, accountID, rec.ResourceID) {
				continue
			}
			if normalizers.NormalizeName(p.FullName) == name {
				return p, MatchByName
			}
		}
	}

	// 3. Nickname equivalence on the given name, rest of the name equal
	for _, p := range people {
		if mappedElsewhere(p, accountID, rec.ResourceID) {
			continue
		}
		if m.EquivalentNames(p.FullName, rec.FullName) {
			return p, MatchByNickname
		}
	}

	return nil, MatchNone
}

func mappedElsewhere(p *models.Person, accountID, resourceID string) bool {
	id, ok := p.ResourceID(accountID)
	return ok && id != resourceID
}

// EquivalentNames reports whether two full names refer to the same person:
// either exactly equal after normalization, or the given names are
// nickname-equivalent and the remaining name parts are identical.
func (m *Matcher) EquivalentNames(a, b string) bool {
	na := normalizers.NormalizeName(a)
	nb := normalizers.NormalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}

	firstA, restA := splitGivenName(na)
	firstB, restB := splitGivenName(nb)
	if restA != restB {
		return false
	}
	return m.nicknames.Equivalent(firstA, firstB)
}

func splitGivenName(name string) (first, rest string) {
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
