package auth

import (
	"context"
)

// AuthService defines authentication flows for admins and employees.
type AuthService interface {
	// Login authenticates an administrator with email and password.
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)

	// LoginWithEmployeeCode authenticates an employee with code and phone.
	LoginWithEmployeeCode(ctx context.Context, req EmployeeLoginRequest) (LoginResponse, error)

	// RefreshToken exchanges a refresh token for a new access token.
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (RefreshResponse, error)

	// Logout revokes the given refresh token.
	Logout(ctx context.Context, refreshToken string) error
}
