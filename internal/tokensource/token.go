package tokensource

import (
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/florianilch/kanbanctl/internal/tokenstore"
)

// Token converts pair into a Bearer oauth2.Token. Expiry comes from the access token's
// unverified "exp" claim and is zero when the access token is not a JWT.
func Token(pair tokenstore.CredentialPair) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	}

	// Signature verification is the server's job; only the claims are read here.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(pair.AccessToken, claims); err != nil {
		return token
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		token.Expiry = exp.Time
	}
	return token
}

// Subject returns the unverified "sub" claim of the access token, or "" if absent.
func Subject(accessToken string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
