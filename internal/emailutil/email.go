// Package emailutil has the small amount of email handling the admin
// provider forms need. Full RFC validation belongs to the upstream; this
// only normalizes input and rejects the obviously malformed.
package emailutil

import "strings"

// Normalize lowercases and trims an address so comparisons are consistent
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ExtractDomain returns the part after the last @, or "" when there is no
// usable domain
func ExtractDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

// Valid reports whether the address has a local part and a dotted domain
func Valid(email string) bool {
	domain := ExtractDomain(email)
	return domain != "" && strings.Contains(domain, ".")
}
