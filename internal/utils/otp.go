package utils

import "golang.org/x/crypto/bcrypt"

// HashOTP returns the bcrypt hash of a one-time code. The plain code is
// never stored.
func HashOTP(code string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyOTP safely compares a bcrypt hash and a plain code.
func VerifyOTP(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
