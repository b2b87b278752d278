// Package auth issues and verifies the credentials the gateway hands
// out: per-seat rejoin tokens and the admin basic-auth gate.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "duel-server"

// ErrInvalidToken covers every verification failure: bad signature,
// wrong algorithm, expired, or malformed claims.
var ErrInvalidToken = errors.New("invalid seat token")

// SeatClaims binds a token to one seat of one match. Possession of a
// valid token is what lets a reconnecting socket reclaim the seat.
type SeatClaims struct {
	MatchID  string `json:"mid"`
	PlayerID string `json:"pid"`
	Seat     int    `json:"seat"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies seat tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer builds an issuer. Tokens expire after ttl.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// IssueSeatToken mints a token for one seat. Seat is the index into
// the match's seat order.
func (ti *TokenIssuer) IssueSeatToken(matchID, playerID string, seat int) (string, error) {
	now := time.Now().UTC()
	claims := SeatClaims{
		MatchID:  matchID,
		PlayerID: playerID,
		Seat:     seat,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   playerID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign seat token: %w", err)
	}
	return signed, nil
}

// VerifySeatToken parses and validates a token, returning its claims.
func (ti *TokenIssuer) VerifySeatToken(raw string) (*SeatClaims, error) {
	claims := &SeatClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return ti.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.MatchID == "" || claims.PlayerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
