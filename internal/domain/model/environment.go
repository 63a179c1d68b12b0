package model

// Environment holds the device-scoped properties the vault fingerprints.
// None of them change across ordinary usage of the installed app.
type Environment struct {
	// Origin is the scheme://host[:port] the front end is served from.
	Origin string
	// Locale is the user's language tag, e.g. "en-US".
	Locale string
	// TimeZone is an IANA zone name, e.g. "Europe/Berlin".
	TimeZone string
}
