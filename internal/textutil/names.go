package textutil

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/you/chatvault/internal/core"
)

// CompareName picks which spelling of an identity to show. The display name
// wins when it only differs from the login by case; otherwise the login wins.
// Either value missing yields "".
func CompareName(login, displayName string) string {
	if login == "" || displayName == "" {
		return ""
	}
	if strings.EqualFold(login, displayName) {
		return displayName
	}
	return login
}

// Levenshtein returns the edit distance between a and b with unit costs for
// insertion, deletion and substitution.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(ra)+1)
	cur := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		cur[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[i] = min(cur[i-1]+1, prev[i]+1, prev[i-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(ra)]
}

// CalculateSimilarity scores how well username matches a search term.
// Substring hits score at least 0.7, with a bonus for prefix matches and for
// covering more of the username; everything else falls back to normalized
// edit distance, clamped at 0.
func CalculateSimilarity(searchTerm, username string) float64 {
	search := strings.ToLower(searchTerm)
	user := strings.ToLower(username)

	searchLen := utf8.RuneCountInString(search)
	userLen := utf8.RuneCountInString(user)
	if userLen == 0 || searchLen == 0 {
		return 0
	}

	if strings.Contains(user, search) {
		bonus := 0.0
		if strings.HasPrefix(user, search) {
			bonus = 0.3
		}
		return 0.7 + bonus + float64(searchLen)/float64(userLen)*0.3
	}

	maxLen := max(searchLen, userLen)
	distance := Levenshtein(search, user)
	score := float64(maxLen-distance) / float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

// RankChannels orders channels by descending similarity to query. Ties keep
// their upstream order.
func RankChannels(query string, channels []core.Channel) []core.Channel {
	out := append([]core.Channel(nil), channels...)
	sort.SliceStable(out, func(i, j int) bool {
		return CalculateSimilarity(query, out[i].Username) > CalculateSimilarity(query, out[j].Username)
	})
	return out
}

// RankUsers is RankChannels for search results.
func RankUsers(query string, users []core.User) []core.User {
	out := append([]core.User(nil), users...)
	sort.SliceStable(out, func(i, j int) bool {
		return CalculateSimilarity(query, out[i].Username) > CalculateSimilarity(query, out[j].Username)
	})
	return out
}
