package textutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/you/chatvault/internal/core"
)

const (
	ImageProxy = "https://wsrv.nl/?n=-1&url="
	CORSProxy  = "https://corsproxy.io/?url="
)

var combiningMarks = runes.Predicate(func(r rune) bool { return r >= 0x0300 && r <= 0x036f })

// NormalizeText folds accents and case so "Pokémon" matches "pokemon".
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(combiningMarks))
	out, _, err := transform.String(t, text)
	if err != nil {
		return strings.ToLower(text)
	}
	return strings.ToLower(out)
}

// FilterEmotes keeps emotes whose name, owner or provider contains search
// after accent and case folding.
func FilterEmotes(emotes []core.Emotes, search string) []core.Emotes {
	s := NormalizeText(strings.TrimSpace(search))
	if s == "" {
		return emotes
	}
	out := make([]core.Emotes, 0, len(emotes))
	for _, e := range emotes {
		if strings.Contains(NormalizeText(e.Name), s) ||
			strings.Contains(NormalizeText(e.Owner), s) ||
			strings.Contains(NormalizeText(string(e.Provider)), s) {
			out = append(out, e)
		}
	}
	return out
}

// IncludesAny reports whether s contains any of the fragments.
func IncludesAny(s string, fragments ...string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// ResizeImageURL routes an image through the resizing proxy as square webp.
func ResizeImageURL(raw string, size int) string {
	return fmt.Sprintf("https://wsrv.nl/?url=%s&w=%d&h=%d&n=-1&output=webp", raw, size, size)
}

var schemePrefix = regexp.MustCompile(`(?i)^https?://`)

// Favicon cleans a social link and returns it with its favicon URL.
func Favicon(raw string) (clean, icon string, err error) {
	fixed := strings.TrimSpace(raw)
	if !schemePrefix.MatchString(fixed) {
		fixed = "https://" + fixed
	}
	u, err := url.Parse(fixed)
	if err != nil {
		return "", "", fmt.Errorf("favicon: parse %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return "", "", fmt.Errorf("favicon: %q has no host", raw)
	}
	host := u.Hostname()
	if strings.HasPrefix(strings.ToLower(host), "www.") {
		host = host[4:]
	}
	path := strings.TrimRight(u.Path, "/")
	clean = u.Scheme + "://" + host + path
	icon = "https://favicon.yandex.net/favicon/" + host + "?size=32"
	return clean, icon, nil
}

// PageImage picks the preview image for an entity page; AVIF is swapped for
// WebP since link unfurlers rarely support it.
func PageImage(images []string) string {
	if len(images) == 0 {
		return ""
	}
	img := images[len(images)-1]
	return strings.Replace(img, ".avif", ".webp", 1)
}
