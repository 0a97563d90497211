package domain

// Claims is the identity carried by a signed token.
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// IsAdmin reports whether the claims belong to an administrator.
func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
