// PKCE helpers for the Spotify authorization code flow.
//
// Implements RFC 7636: the client generates a high-entropy verifier,
// sends its S256 challenge with the authorization request, and proves
// possession of the verifier at token exchange.
package shared

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// verifierBytes of entropy yields an 86-character base64url verifier,
// within RFC 7636's 43-128 character bounds.
const verifierBytes = 64

// GenerateVerifier returns a new high-entropy PKCE code verifier.
//
// A verifier must never be reused across authorization attempts; callers
// persist it only for the duration of one redirect round-trip.
func GenerateVerifier() (string, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ChallengeS256 derives the code challenge from a verifier: the
// base64url encoding (no padding) of the SHA-256 digest of the verifier.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
