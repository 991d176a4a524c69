package usecase

import (
	"github.com/polkiloo/fulfillment/internal/domain/model"
	pkgAuth "github.com/polkiloo/fulfillment/internal/pkg/auth"
)

// AuthUseCase resolves bearer tokens into actors.
type AuthUseCase struct {
	tokens pkgAuth.Strategy
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(strategy pkgAuth.Strategy) *AuthUseCase {
	return &AuthUseCase{tokens: strategy}
}

// IssueToken signs a token for a vendor or supplier.
func (u *AuthUseCase) IssueToken(actor model.Actor) (string, error) {
	return u.tokens.IssueToken(actor)
}

// ParseToken extracts the actor from provided token.
func (u *AuthUseCase) ParseToken(token string) (model.Actor, error) {
	if token == "" {
		return model.Actor{}, pkgAuth.ErrInvalidToken
	}
	return u.tokens.ParseToken(token)
}
