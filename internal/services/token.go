package services

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/desertthunder/plylist/internal/shared"
)

// DeveloperTokenTTL is how long a signed developer token stays valid (Apple's maximum is six months).
const DeveloperTokenTTL = 180 * 24 * time.Hour

// DeveloperTokenSource signs MusicKit developer tokens.
//
// Wrap it in [oauth2.ReuseTokenSource] so a token is only re-signed once it expires.
type DeveloperTokenSource struct {
	TeamID string
	KeyID  string
	Key    *ecdsa.PrivateKey
	TTL    time.Duration
	Now    func() time.Time
}

// NewDeveloperTokenSource loads the .p8 key at keyPath.
func NewDeveloperTokenSource(teamID, keyID, keyPath string) (*DeveloperTokenSource, error) {
	pem, err := os.ReadFile(shared.ExpandPath(keyPath))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read private key: %v", shared.ErrInvalidCredentials, err)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse private key: %v", shared.ErrInvalidCredentials, err)
	}

	return &DeveloperTokenSource{TeamID: teamID, KeyID: keyID, Key: key, TTL: DeveloperTokenTTL, Now: time.Now}, nil
}

// Token implements [oauth2.TokenSource] by signing an ES256 JWT.
func (s *DeveloperTokenSource) Token() (*oauth2.Token, error) {
	now := s.Now()
	expiry := now.Add(s.TTL)

	claims := jwt.MapClaims{
		"iss": s.TeamID,
		"iat": now.Unix(),
		"exp": expiry.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = s.KeyID

	signed, err := token.SignedString(s.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign developer token: %w", err)
	}

	return &oauth2.Token{AccessToken: signed, TokenType: "Bearer", Expiry: expiry}, nil
}
