// Package tokenpkg verifies and issues access tokens.
//
// Tokens are issued by the identity service that shares the symmetric key;
// the ledger API only needs the user id carried in the payload.
package tokenpkg

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const minSecretKeySize = 32

// Errors returned by VerifyToken.
var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token has expired")
)

// Maker is an interface for managing tokens.
type Maker interface {
	// CreateToken creates a new token for a specific user and duration.
	CreateToken(userID uuid.UUID, duration time.Duration) (string, *Payload, error)
	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// Payload contains the payload data of the token.
type Payload struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiredAt time.Time `json:"expired_at"`
}

// NewPayload creates a new token payload with a specific user id and duration.
func NewPayload(userID uuid.UUID, duration time.Duration) (*Payload, error) {
	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	now := time.Now()

	payload := &Payload{
		ID:        tokenID,
		UserID:    userID,
		IssuedAt:  now,
		ExpiredAt: now.Add(duration),
	}

	return payload, nil
}

// Valid checks if the token payload is valid or not.
func (p *Payload) Valid() error {
	if time.Now().After(p.ExpiredAt) {
		return ErrExpiredToken
	}

	return nil
}

// NewMaker returns the maker for the configured token type ("paseto" or "jwt").
func NewMaker(tokenType, symmetricKey string) (Maker, error) {
	if tokenType == "jwt" {
		return NewJWTMaker(symmetricKey)
	}

	return NewPasetoMaker(symmetricKey)
}
