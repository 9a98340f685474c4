package tokens

import "github.com/golang-jwt/jwt/v5"

const (
	ScopeAccess  = "access_token"
	ScopeRefresh = "refresh_token"
)

// Claims is the signed claim set. Email tokens leave Scope empty.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}
