package locale

import (
	"slices"
	"strings"
)

var macroMapping = map[string]map[string]string{
	"zh": {
		"zh-Hant": "zh-TW",
		"zh-TW":   "zh-TW",
		"zh-HK":   "zh-TW",
		"zh-MO":   "zh-TW",
		"zh-Hans": "zh-CN",
		"zh-CN":   "zh-CN",
		"zh-SG":   "zh-CN",
		"zh":      "zh-CN",
	},
	"pt": {
		"pt":    "pt-BR",
		"pt-BR": "pt-BR",
		"pt-PT": "pt-PT",
	},
}

// NormalizeLocale rewrites underscores to hyphens ("pt_BR" -> "pt-BR").
func NormalizeLocale(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), "_", "-")
}

// MapLocale resolves macro-language inputs through the manual table, e.g.
// "zh-HK" -> "zh-TW" and "pt" -> "pt-BR". The result must be supported.
func MapLocale(input string, supported []string) (string, bool) {
	if input == "" {
		return "", false
	}
	normalized := NormalizeLocale(input)
	lang, _, _ := strings.Cut(normalized, "-")

	table, ok := macroMapping[lang]
	if !ok {
		return "", false
	}
	mapped, ok := table[normalized]
	if !ok {
		mapped, ok = table[lang]
	}
	if ok && slices.Contains(supported, mapped) {
		return mapped, true
	}
	return "", false
}

// ChooseSupported picks the supported locale for value: an exact match,
// then the macro-language table, then the bare language subtag.
func ChooseSupported(value string, supported []string) (string, bool) {
	if value == "" {
		return "", false
	}
	normalized := NormalizeLocale(value)
	if slices.Contains(supported, normalized) {
		return normalized, true
	}
	if mapped, ok := MapLocale(normalized, supported); ok {
		return mapped, true
	}
	base, _, _ := strings.Cut(normalized, "-")
	if slices.Contains(supported, base) {
		return base, true
	}
	return "", false
}
