package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a member account password with bcrypt at the
// configured cost. The hash is what gets stored in members.password_hash.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored member
// password hash. Constant-time under the hood, so login failures leak
// nothing about how close the attempt was.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
