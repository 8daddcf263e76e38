package shared

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestPKCE(t *testing.T) {
	t.Run("GenerateVerifier", func(t *testing.T) {
		t.Run("Length Within RFC Bounds", func(t *testing.T) {
			v, err := GenerateVerifier()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(v) < 43 || len(v) > 128 {
				t.Errorf("verifier length %d outside RFC 7636 bounds", len(v))
			}
		})

		t.Run("URL Safe Without Padding", func(t *testing.T) {
			v, err := GenerateVerifier()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if strings.ContainsAny(v, "+/=") {
				t.Errorf("verifier contains non-url-safe characters: %s", v)
			}
		})

		t.Run("No Collisions Across Trials", func(t *testing.T) {
			seen := make(map[string]struct{}, 10000)
			for i := 0; i < 10000; i++ {
				v, err := GenerateVerifier()
				if err != nil {
					t.Fatalf("trial %d: %v", i, err)
				}
				if _, dup := seen[v]; dup {
					t.Fatalf("verifier collision after %d trials", i)
				}
				seen[v] = struct{}{}
			}
		})
	})

	t.Run("ChallengeS256", func(t *testing.T) {
		t.Run("Stable For Fixed Verifier", func(t *testing.T) {
			if ChallengeS256("fixed-verifier") != ChallengeS256("fixed-verifier") {
				t.Error("challenge must be deterministic for a fixed verifier")
			}
		})

		t.Run("Differs For Distinct Verifiers", func(t *testing.T) {
			if ChallengeS256("verifier-a") == ChallengeS256("verifier-b") {
				t.Error("distinct verifiers must yield distinct challenges")
			}
		})

		t.Run("Matches Manual Derivation", func(t *testing.T) {
			verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
			sum := sha256.Sum256([]byte(verifier))
			want := base64.RawURLEncoding.EncodeToString(sum[:])

			if got := ChallengeS256(verifier); got != want {
				t.Errorf("expected %s, got %s", want, got)
			}
		})

		t.Run("No Padding", func(t *testing.T) {
			if strings.Contains(ChallengeS256("anything"), "=") {
				t.Error("challenge must not be padded")
			}
		})
	})
}
