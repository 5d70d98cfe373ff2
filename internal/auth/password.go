package auth

import "golang.org/x/crypto/bcrypt"

// BCryptCost is the work factor applied whenever a password field is set.
const BCryptCost = 12

func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = BCryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches the stored hash. A
// mismatch is a plain false; callers translate it into their own generic
// error so responses never reveal which factor failed.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
