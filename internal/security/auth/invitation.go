package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const invitationSecretBytes = 32

// NewInvitationSecret returns a random single-use registration secret.
// It is opaque hex, never a signed session token.
func NewInvitationSecret() (string, error) {
	buf := make([]byte, invitationSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invitation secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
