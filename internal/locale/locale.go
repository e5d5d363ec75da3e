// Package locale maps locales to public URL paths and picks the locale of a
// request.
package locale

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// Path returns pathname as served for loc. The default locale lives at the
// site root, every other locale under /<loc>.
func Path(pathname, loc, defaultLocale string) string {
	if loc == "" || loc == defaultLocale {
		return pathname
	}
	if !strings.HasPrefix(pathname, "/") {
		pathname = "/" + pathname
	}
	return "/" + loc + pathname
}

// PostPath returns the public path of the post page id in loc.
func PostPath(id, loc, defaultLocale string) string {
	return Path("/"+id, loc, defaultLocale)
}

// Normalize lower-cases loc and returns it when supported, otherwise
// defaultLocale.
func Normalize(loc string, supported []string, defaultLocale string) string {
	loc = strings.ToLower(strings.TrimSpace(loc))
	if loc == "" || !slices.Contains(supported, loc) {
		return defaultLocale
	}
	return loc
}

// Negotiate picks the supported locale that best matches an Accept-Language
// header. defaultLocale wins ties and is returned when nothing matches.
func Negotiate(acceptLanguage string, supported []string, defaultLocale string) string {
	if acceptLanguage == "" {
		return defaultLocale
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return defaultLocale
	}

	// The first tag is the matcher's fallback.
	names := []string{defaultLocale}
	for _, s := range supported {
		if s != defaultLocale {
			names = append(names, s)
		}
	}
	var tags []language.Tag
	var valid []string
	for _, n := range names {
		t, err := language.Parse(n)
		if err != nil {
			continue
		}
		tags = append(tags, t)
		valid = append(valid, n)
	}
	if len(tags) == 0 {
		return defaultLocale
	}

	_, i, conf := language.NewMatcher(tags).Match(prefs...)
	if conf == language.No {
		return defaultLocale
	}
	return valid[i]
}
