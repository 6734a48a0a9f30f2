// Package auth provides the authorization check guarding market
// resolution. Resolution rights are an explicit capability passed per
// call, not an ambient credential.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// ErrUnauthorized is returned when the presented token does not carry
// resolution rights.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Authorizer validates an administrative token.
type Authorizer interface {
	Authorize(ctx context.Context, token string) error
}

// StaticToken authorizes a single pre-shared admin token.
type StaticToken struct {
	token string
}

// NewStaticToken creates an authorizer for the given token. An empty
// token authorizes nothing.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token}
}

func (a *StaticToken) Authorize(_ context.Context, token string) error {
	if a.token == "" || token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(a.token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
