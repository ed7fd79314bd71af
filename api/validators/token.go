package validators

import "strings"

// BearerToken extracts the credential from an Authorization header value.
// Returns an empty string when no token is present.
func BearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
