package textutil

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/you/chatvault/internal/core"
)

// TierOf splits a banded subscription value into its tier and month count.
// Values >= 3000 are tier 3, >= 2000 tier 2, anything else tier 1; for tiers
// above 1 the band offset is subtracted.
func TierOf(value int) (tier, months int) {
	switch {
	case value >= 3000:
		tier = 3
	case value >= 2000:
		tier = 2
	default:
		tier = 1
	}
	if tier > 1 {
		return tier, value - tier*1000
	}
	return tier, value
}

// VersionValue parses the numeric prefix of a composite "value/owner" version.
// Non-numeric prefixes yield 0.
func VersionValue(version string) int {
	head, _, _ := strings.Cut(version, "/")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0
	}
	return n
}

// SortBadges returns a copy ordered by id (numeric-aware, case-insensitive)
// and then by the numeric value of the version.
func SortBadges(badges []core.Badges) []core.Badges {
	out := append([]core.Badges(nil), badges...)
	coll := collate.New(language.Und, collate.Numeric, collate.Loose)
	sort.SliceStable(out, func(i, j int) bool {
		if c := coll.CompareString(out[i].ID, out[j].ID); c != 0 {
			return c < 0
		}
		return VersionValue(out[i].Version) < VersionValue(out[j].Version)
	})
	return out
}

var cheerSuffix = regexp.MustCompile(`^(.*)\s\d+$`)

// CheerName strips a trailing " <amount>" from a cheermote title.
func CheerName(input string) string {
	if m := cheerSuffix.FindStringSubmatch(input); m != nil {
		return m[1]
	}
	return input
}
