package usecase

import (
	pkgAuth "github.com/mdnair2344/greenbasket/internal/pkg/auth"
)

// AuthUseCase resolves producer identities from bearer tokens.
type AuthUseCase struct {
	tokens pkgAuth.Strategy
}

// NewAuthUseCase constructs AuthUseCase.
func NewAuthUseCase(strategy pkgAuth.Strategy) *AuthUseCase {
	return &AuthUseCase{tokens: strategy}
}

// ParseToken extracts the producer ID from token.
func (u *AuthUseCase) ParseToken(token string) (string, error) {
	if token == "" {
		return "", pkgAuth.ErrInvalidToken
	}
	producerID, err := u.tokens.ParseToken(token)
	if err != nil {
		return "", err
	}
	if !ValidateDocumentID(producerID) {
		return "", pkgAuth.ErrInvalidToken
	}
	return producerID, nil
}
