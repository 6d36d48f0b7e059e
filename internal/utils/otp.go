package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// OTPValidity is how long an issued code stays valid.
const OTPValidity = 10 * time.Minute

var otpSpan = big.NewInt(900000)

// NewOTPCode returns a uniformly random six digit code in [100000, 999999].
func NewOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// OTPMatches reports whether a stored challenge accepts presented at now:
// the codes are equal and now is strictly before expiry. A missing
// challenge never matches.
func OTPMatches(stored *string, expiry *time.Time, presented string, now time.Time) bool {
	if stored == nil || expiry == nil || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(presented)) == 1 && now.Before(*expiry)
}
