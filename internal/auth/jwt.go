package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the actor identity inside an access token.
type Claims struct {
	Kind      string `json:"kind"`
	CountryID string `json:"country_id,omitempty"`
	PersonID  string `json:"person_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 actor tokens.
type TokenIssuer struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenIssuer(signingKey string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{signingKey: []byte(signingKey), ttl: ttl}
}

// Issue returns a signed token for the actor plus its session ID (the JWT ID),
// which the session store tracks for revocation.
func (i *TokenIssuer) Issue(actor Actor) (string, string, error) {
	now := time.Now()
	sessionID := uuid.NewString()
	claims := Claims{
		Kind:      string(actor.Kind),
		CountryID: actor.CountryID,
		PersonID:  actor.PersonID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return signed, sessionID, nil
}

// Validate parses a token and returns the actor and session ID.
func (i *TokenIssuer) Validate(tokenString string) (Actor, string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.signingKey, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, "", fmt.Errorf("invalid token")
	}
	actor := Actor{
		Kind:      Kind(claims.Kind),
		CountryID: claims.CountryID,
		PersonID:  claims.PersonID,
	}
	switch actor.Kind {
	case KindAdmin, KindDelegate, KindSelfRegistration, KindScoreEntry:
	default:
		return Actor{}, "", fmt.Errorf("unknown actor kind %q", claims.Kind)
	}
	return actor, claims.ID, nil
}
