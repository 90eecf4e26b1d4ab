package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type localeContextKey struct{}
type countryContextKey struct{}

var (
	LocaleKey  = localeContextKey{}
	CountryKey = countryContextKey{}
)

// CountryLookup resolves ISO country codes for an IP address. A nil lookup
// disables GeoIP detection and leaves only header-based hints.
type CountryLookup func(ip string) (string, error)

// Locales the generation progress messages ship in. Anything else collapses
// to English.
var supportedLocales = map[string]string{
	"en": "en",
	"id": "id",
}

// countryLocales maps countries with a non-English default to their locale.
var countryLocales = map[string]string{
	"ID": "id",
}

// I18N resolves the caller's locale so the pipeline can emit progress
// messages in their language. Detection order: explicit X-Locale header,
// Accept-Language, country of origin, configured default. An account-level
// locale claim on the token can still override this downstream.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := detectCountry(r, lookup)
			ctx := context.WithValue(r.Context(), LocaleKey, detectLocale(r, defaultLocale, country))
			if country != "" {
				ctx = context.WithValue(ctx, CountryKey, country)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLocale(r *http.Request, fallback, country string) string {
	if loc := normalizeLocale(r.Header.Get("X-Locale")); loc != "" {
		return loc
	}
	for _, tag := range languageTags(r.Header.Get("Accept-Language")) {
		if loc := normalizeLocale(tag); loc != "" {
			return loc
		}
	}
	if loc, ok := countryLocales[country]; ok {
		return loc
	}
	if country != "" {
		return "en"
	}
	if _, ok := supportedLocales[fallback]; ok {
		return fallback
	}
	return "en"
}

// normalizeLocale reduces a language tag like "id-ID" to a supported locale,
// or "" when the language is not one the service speaks.
func normalizeLocale(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	primary, _, _ := strings.Cut(tag, "-")
	primary, _, _ = strings.Cut(primary, "_")
	return supportedLocales[primary]
}

// languageTags splits an Accept-Language header into its tags, in the order
// sent. Quality values are ignored; browsers already order by preference.
func languageTags(header string) []string {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// detectCountry resolves a best-effort ISO country code: proxy headers
// first, then the region subtag of any language hint, then GeoIP.
func detectCountry(r *http.Request, lookup CountryLookup) string {
	for _, key := range []string{"X-Country-Code", "CF-IPCountry", "X-Appengine-Country"} {
		if val := strings.TrimSpace(r.Header.Get(key)); val != "" {
			return strings.ToUpper(val)
		}
	}
	if region := regionSubtag(r.Header.Get("X-Locale")); region != "" {
		return region
	}
	if region := regionSubtag(r.Header.Get("Accept-Language")); region != "" {
		return region
	}
	if lookup != nil {
		if ip := clientIP(r); ip != "" {
			if country, err := lookup(ip); err == nil && country != "" {
				return strings.ToUpper(country)
			}
		}
	}
	return ""
}

// regionSubtag extracts the region from the first tag carrying one, e.g.
// "id-ID,en;q=0.8" yields "ID".
func regionSubtag(header string) string {
	for _, tag := range languageTags(header) {
		if idx := strings.IndexAny(tag, "-_"); idx > 0 && idx < len(tag)-1 {
			return strings.ToUpper(tag[idx+1:])
		}
	}
	return ""
}

// clientIP is the best-effort peer address, preferring the first valid
// X-Forwarded-For hop. Shared by locale detection and rate limiting.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			hop := strings.TrimSpace(part)
			if net.ParseIP(hop) != nil {
				return hop
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}

// CountryFromContext returns the ISO country code stored by I18N, or "".
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CountryKey).(string); ok {
		return v
	}
	return ""
}
