package api

import "time"

// SignUpRequest is the request body for creating an account.
type SignUpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignInRequest is the request body for signing in. Either Password or
// RefreshToken is supplied; a refresh token in place of a password performs
// a silent refresh.
type SignInRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// SessionResponse is returned by signup and signin. Expiries are embedded in
// the tokens too; they are repeated here so clients need not decode JWTs.
type SessionResponse struct {
	Username         string    `json:"username"`
	Token            string    `json:"token"`
	Refresh          string    `json:"refresh"`
	TokenExpiresAt   time.Time `json:"token_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// SubjectListResponse wraps the sorted subject name list.
type SubjectListResponse struct {
	Subjects []string `json:"subjects"`
}
