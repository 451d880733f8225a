package database

import (
	"net/url"
	"strings"
)

// ConstructDatabaseURL joins a server URL and a database name.
// Existing query parameters are preserved and sslmode=disable is added
// when the URL does not specify an sslmode.
func ConstructDatabaseURL(baseURL, databaseName string) string {
	if databaseName == "" {
		return baseURL
	}

	base, query, hasQuery := strings.Cut(strings.TrimRight(baseURL, "/"), "?")
	base = strings.TrimRight(base, "/")

	databaseURL := base + "/" + databaseName
	if hasQuery && query != "" {
		databaseURL += "?" + query
	}

	if !strings.Contains(databaseURL, "sslmode=") {
		if strings.Contains(databaseURL, "?") {
			databaseURL += "&sslmode=disable"
		} else {
			databaseURL += "?sslmode=disable"
		}
	}

	return databaseURL
}

// redactURL hides the password of a connection URL for logging
func redactURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "<unparseable database url>"
	}
	return u.Redacted()
}
