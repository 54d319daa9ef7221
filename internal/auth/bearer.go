package auth

import "strings"

// BearerToken extracts the credential from an Authorization header value: the
// last whitespace separated segment, so both "Bearer <t>" and a bare "<t>" work.
func BearerToken(header string) string {
	fields := strings.Fields(header)

	if len(fields) == 0 {
		return ""
	}

	return fields[len(fields)-1]
}
