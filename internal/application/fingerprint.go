package application

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"github.com/ericfisherdev/crmvault/internal/domain/model"
)

const (
	// FingerprintVersion tags the fingerprint layout. Changing any input or
	// normalization rule requires a new tag.
	FingerprintVersion = "crmvault-fp/v1"

	// Fallbacks keep the fingerprint deterministic when a property is missing.
	fallbackOrigin   = "null"
	fallbackLocale   = "en-US"
	fallbackTimeZone = "UTC"

	fingerprintSep = "\x1f"
)

// Fingerprint derives the key material for the vault KDF from env. It is a
// pure function: the same environment always yields the same string. User
// agent and screen size are deliberately not inputs.
func Fingerprint(env model.Environment) string {
	return strings.Join([]string{
		FingerprintVersion,
		NormalizeOrigin(env.Origin),
		NormalizeLocale(env.Locale),
		NormalizeTimeZone(env.TimeZone),
	}, fingerprintSep)
}

// NormalizeOrigin reduces raw to scheme://host[:port], dropping default ports,
// paths, queries and fragments. Anything without a scheme and host becomes "null".
func NormalizeOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fallbackOrigin
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fallbackOrigin
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	if port == "" {
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		return scheme + "://" + host
	}
	return scheme + "://" + net.JoinHostPort(host, port)
}

// NormalizeLocale canonicalizes POSIX or BCP 47 locale strings ("en_US.UTF-8",
// "en-us") to a BCP 47 tag ("en-US"). Unusable values become "en-US".
func NormalizeLocale(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "C" || s == "POSIX" {
		return fallbackLocale
	}

	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil || tag == language.Und {
		return fallbackLocale
	}
	return tag.String()
}

// NormalizeTimeZone returns the IANA zone name, or "UTC" when unset.
func NormalizeTimeZone(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || s == "Local" {
		return fallbackTimeZone
	}
	return s
}
