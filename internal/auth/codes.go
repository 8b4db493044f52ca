package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// CodePurpose tells a CodeSender which message to deliver.
type CodePurpose string

const (
	PurposeVerification  CodePurpose = "verification"
	PurposePasswordReset CodePurpose = "password_reset"
)

// CodeSender delivers one-time codes to the account's email address.
type CodeSender interface {
	SendCode(ctx context.Context, email string, purpose CodePurpose, code string) error
}

// generateCode returns a uniformly random 6-digit code.
func generateCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// hashCode is how one-time codes are stored at rest.
func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func codeMatches(code string, stored *string) bool {
	if stored == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(*stored)) == 1
}
