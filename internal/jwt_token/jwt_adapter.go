package jwttoken

import (
	authmw "safesupport/pkg/platform/middleware/auth"
)

// JWTServiceAdapter exposes access-token validation to the auth middleware.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

// ValidateToken accepts only access tokens, so an emailed verify or reset
// link can never be used as a bearer credential.
func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidatePurpose(tokenString, PurposeAccess)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		UserID: claims.UserID,
		JTI:    claims.ID,
	}, nil
}
