package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"priyom/internal/models"
)

var cancellationSecretRe = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// HexSecretGenerator returns Bytes random bytes from crypto/rand, hex-encoded.
type HexSecretGenerator struct {
	Bytes int
}

func NewCancellationSecretGenerator() HexSecretGenerator {
	return HexSecretGenerator{Bytes: models.CancellationSecretBytes}
}

func NewManagementTokenGenerator() HexSecretGenerator {
	return HexSecretGenerator{Bytes: models.ManagementTokenBytes}
}

func (g HexSecretGenerator) NewSecret() (string, error) {
	buf := make([]byte, g.Bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidCancellationSecret reports whether s has the shape of a generated secret.
func ValidCancellationSecret(s string) bool {
	return cancellationSecretRe.MatchString(s)
}
