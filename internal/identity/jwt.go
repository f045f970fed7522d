// Package identity resolves authenticated registrants from bearer tokens.
// The resolved identity is passed explicitly into the registration workflow;
// nothing in the core reads ambient session state.
package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	id "eventreg/pkg/domain"
	dErrors "eventreg/pkg/domain-errors"
)

// Claims are the token claims carried for a registrant.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is the authenticated principal extracted from a token.
type Identity struct {
	MemberID id.MemberID
	Name     string
	Email    string
}

// JWTProvider validates HS256 bearer tokens issued by the surrounding
// application and maps them to identities.
type JWTProvider struct {
	signingKey []byte
	issuer     string
}

func NewJWTProvider(signingKey, issuer string) *JWTProvider {
	return &JWTProvider{signingKey: []byte(signingKey), issuer: issuer}
}

// FromToken parses and validates a token string. The subject claim is the
// member ID.
func (p *JWTProvider) FromToken(tokenString string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return p.signingKey, nil
	}, jwt.WithIssuer(p.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	memberID, err := id.ParseMemberID(claims.Subject)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	return &Identity{
		MemberID: memberID,
		Name:     claims.Name,
		Email:    claims.Email,
	}, nil
}
