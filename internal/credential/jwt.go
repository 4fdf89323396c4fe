package credential

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forma22-agency/gh-dispatch-relay/internal/domain"
)

const (
	// jwtBackdate absorbs clock drift between the relay and GitHub.
	jwtBackdate = 60 * time.Second
	// jwtLifetime stays under GitHub's ten minute ceiling.
	jwtLifetime = 9 * time.Minute
)

// appSigner issues RS256 JWTs that authenticate as the GitHub App itself.
type appSigner struct {
	issuer string
	key    any
}

func newAppSigner(app domain.AppIdentity) (*appSigner, error) {
	if app.AppID <= 0 {
		return nil, fmt.Errorf("app id must be positive, got %d", app.AppID)
	}
	// Accepts PKCS#1 and PKCS#8 PEM blocks.
	key, err := jwt.ParseRSAPrivateKeyFromPEM(app.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing app private key: %w", err)
	}
	return &appSigner{
		issuer: strconv.FormatInt(app.AppID, 10),
		key:    key,
	}, nil
}

func (s *appSigner) sign(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now.Add(-jwtBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(jwtLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing app jwt: %w", err)
	}
	return signed, nil
}
