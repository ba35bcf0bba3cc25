package auth

import (
	"regexp"

	"mealsnap/internal/profile"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail checks the address shape before any I/O.
func ValidEmail(email string) bool {
	return emailRe.MatchString(NormalizeEmail(email))
}

// ValidPassword enforces the 6-character minimum the mobile client expects.
func ValidPassword(password string) bool {
	return len(password) >= 6
}

// ValidPhone requires at least 10 digits after normalization.
func ValidPhone(phone string) bool {
	digits := 0
	for _, r := range profile.NormalizePhone(phone) {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 10
}
