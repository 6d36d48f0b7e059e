package utils

import (
	"regexp"
	"strings"
)

var (
	phonePattern      = regexp.MustCompile(`^09\d{9}$`)
	nationalIDPattern = regexp.MustCompile(`^\d{10}$`)
)

// IsEmail decides which column a login identifier is matched against.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeIdentifier applies email normalization to emails and trimming to
// everything else.
func NormalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if IsEmail(identifier) {
		return NormalizeEmail(identifier)
	}
	return identifier
}

// ValidPhone checks the 09XXXXXXXXX mobile format.
func ValidPhone(phone string) bool { return phonePattern.MatchString(phone) }

// ValidNationalID checks for exactly ten digits.
func ValidNationalID(id string) bool { return nationalIDPattern.MatchString(id) }
