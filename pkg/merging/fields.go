package merging

import (
	"github.com/perunhq/blackbook-sync/pkg/models"
	"github.com/perunhq/blackbook-sync/pkg/normalizers"
)

// UnionEmails merges both email sets, deduplicating on the normalized
// address. Local entries come first and no value from either side is
// dropped. Returns the union and whether it differs from local.
func UnionEmails(local, external []models.EmailAddress) ([]models.EmailAddress, bool) {
	seen := make(map[string]bool, len(local))
	out := make([]models.EmailAddress, 0, len(local)+len(external))

	for _, e := range local {
		key := normalizers.NormalizeEmail(e.Address)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}

	changed := false
	for _, e := range external {
		key := normalizers.NormalizeEmail(e.Address)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
		changed = true
	}

	return out, changed
}

// UnionPhones merges both phone sets, deduplicating on digits only.
func UnionPhones(local, external []string) ([]string, bool) {
	seen := make(map[string]bool, len(local))
	out := make([]string, 0, len(local)+len(external))

	for _, p := range local {
		key := normalizers.NormalizePhone(p)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}

	changed := false
	for _, p := range external {
		key := normalizers.NormalizePhone(p)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
		changed = true
	}

	return out, changed
}
