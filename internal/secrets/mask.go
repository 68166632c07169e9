// Package secrets keeps credentials out of logs and checks that the ones a
// deployment needs are set.
package secrets

import "strings"

// Mask returns a masked version of a secret string for safe logging.
// Secrets of 8 characters or fewer are fully hidden.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..."
}

// MaskDSN hides the password in a Postgres connection string. Both URL
// form (postgres://user:pw@host/db) and keyword form (host=db password=pw)
// are handled; anything else is returned unchanged.
func MaskDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		return maskURL(dsn)
	}
	return maskKeywordDSN(dsn)
}

func maskURL(rawURL string) string {
	schemeEnd := strings.Index(rawURL, "://")
	credStart := schemeEnd + 3

	// The last @ ends the userinfo; passwords may contain @
	atIdx := strings.LastIndex(rawURL, "@")
	if atIdx < credStart {
		return rawURL
	}
	colonIdx := strings.Index(rawURL[credStart:atIdx], ":")
	if colonIdx == -1 {
		return rawURL
	}
	return rawURL[:credStart+colonIdx+1] + "***" + rawURL[atIdx:]
}

func maskKeywordDSN(dsn string) string {
	fields := strings.Fields(dsn)
	masked := false
	for i, f := range fields {
		if k, _, ok := strings.Cut(f, "="); ok && strings.EqualFold(k, "password") {
			fields[i] = k + "=***"
			masked = true
		}
	}
	if !masked {
		return dsn
	}
	return strings.Join(fields, " ")
}
