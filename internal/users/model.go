// Package users implements the account and session lifecycle: signup,
// login, logout, current-session retrieval, subscription updates, and the
// authentication gate applied to protected routes.
//
// Session policy is single-session-per-account: logging in overwrites the
// stored session token, so at most one token is ever valid for an account.
//
// Email matching is exact (case-sensitive): Alice@x.com and alice@x.com are
// distinct accounts. The users table uses a binary collation to match.
package users

import (
	"time"
)

// User represents a registered account. This is the domain model used
// throughout the application; database scanning uses it directly.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	AvatarURL    string    `json:"avatarURL"`
	Subscription string    `json:"subscription"`
	SessionToken string    `json:"-"` // Never expose. Empty means no active session.
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the subset of account fields safe to return to a client.
// AvatarURL is only populated where the endpoint includes it (signup and
// avatar upload); login and current omit it.
type Profile struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL,omitempty"`
}

// --- Request DTOs (bound from HTTP requests) ---

// SignupRequest holds the data submitted to POST /api/users/signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest holds the data submitted to POST /api/users/login.
// Deliberately its own type: login must not inherit signup-only
// constraints like minimum password length.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SubscriptionRequest holds the data submitted to PATCH /api/users.
type SubscriptionRequest struct {
	Subscription string `json:"subscription"`
}

// --- Response envelopes ---

// SignupResponse wraps the created profile the way the API returns it.
type SignupResponse struct {
	User Profile `json:"user"`
}

// LoginResponse carries the issued session token and the public profile.
type LoginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// AvatarResponse carries the stored avatar reference after upload.
type AvatarResponse struct {
	AvatarURL string `json:"avatarURL"`
}
