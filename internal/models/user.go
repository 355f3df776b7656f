package models

// User is the account returned by /user/me and the explore listing.
type User struct {
	ID       uint   `json:"id"`
	Email    string `json:"email,omitempty"`
	Nickname string `json:"nickname"`
}

// Credentials is the login form payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the signup form payload.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// LoginResponse carries the bearer token issued by the backend.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
}
