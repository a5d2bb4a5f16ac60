package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/jwt"
)

type AuthServiceImpl struct {
	user.UserRepository
	employee.EmployeeRepository
	jwt.Service
}

func NewAuthService(userRepository user.UserRepository, employeeRepository employee.EmployeeRepository, jwtService jwt.Service) auth.AuthService {
	return &AuthServiceImpl{
		UserRepository:     userRepository,
		EmployeeRepository: employeeRepository,
		Service:            jwtService,
	}
}

// Login implements auth.AuthService.
func (a *AuthServiceImpl) Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.LoginResponse{}, err
	}

	userData, err := a.UserRepository.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return auth.LoginResponse{}, auth.ErrInvalidCredentials
		}
		return auth.LoginResponse{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(userData.PasswordHash), []byte(req.Password)); err != nil {
		return auth.LoginResponse{}, auth.ErrInvalidCredentials
	}

	return a.issueTokens(userData.ID, userData.Email, nil, userData.IsAdmin)
}

// LoginWithEmployeeCode implements auth.AuthService. Employees carry no
// password; the code plus the registered phone number identifies them.
func (a *AuthServiceImpl) LoginWithEmployeeCode(ctx context.Context, req auth.EmployeeLoginRequest) (auth.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.LoginResponse{}, err
	}

	employeeData, err := a.EmployeeRepository.GetByCode(ctx, req.EmployeeCode)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return auth.LoginResponse{}, auth.ErrInvalidCredentials
		}
		return auth.LoginResponse{}, fmt.Errorf("failed to get employee by code: %w", err)
	}

	if !employeeData.Active || employeeData.Phone != req.Phone {
		return auth.LoginResponse{}, auth.ErrInvalidCredentials
	}

	email := ""
	if employeeData.Email != nil {
		email = *employeeData.Email
	}
	return a.issueTokens(employeeData.ID, email, &employeeData.ID, false)
}

// RefreshToken implements auth.AuthService.
func (a *AuthServiceImpl) RefreshToken(ctx context.Context, req auth.RefreshTokenRequest) (auth.RefreshResponse, error) {
	if a.Service.IsTokenRevoked(req.RefreshToken) {
		return auth.RefreshResponse{}, auth.ErrRefreshTokenRevoked
	}

	token, err := a.Service.JWTAuth().Decode(req.RefreshToken)
	if err != nil {
		return auth.RefreshResponse{}, auth.ErrInvalidToken
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "refresh" {
		return auth.RefreshResponse{}, auth.ErrInvalidToken
	}

	subjectVal, ok := token.Get("user_id")
	if !ok {
		return auth.RefreshResponse{}, auth.ErrInvalidToken
	}
	subject, ok := subjectVal.(string)
	if !ok {
		return auth.RefreshResponse{}, auth.ErrInvalidToken
	}

	// The subject may be an admin user or an employee.
	if userData, err := a.UserRepository.GetByID(ctx, subject); err == nil {
		accessToken, expiresAt, err := a.Service.GenerateAccessToken(userData.ID, userData.Email, nil, userData.IsAdmin)
		if err != nil {
			return auth.RefreshResponse{}, fmt.Errorf("failed to create access token: %w", err)
		}
		return auth.RefreshResponse{AccessToken: accessToken, AccessTokenExpiresIn: expiresAt}, nil
	}

	employeeData, err := a.EmployeeRepository.GetByID(ctx, subject)
	if err != nil {
		return auth.RefreshResponse{}, auth.ErrUserNotFound
	}

	email := ""
	if employeeData.Email != nil {
		email = *employeeData.Email
	}
	accessToken, expiresAt, err := a.Service.GenerateAccessToken(employeeData.ID, email, &employeeData.ID, false)
	if err != nil {
		return auth.RefreshResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	return auth.RefreshResponse{AccessToken: accessToken, AccessTokenExpiresIn: expiresAt}, nil
}

// Logout implements auth.AuthService.
func (a *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return auth.ErrInvalidToken
	}
	a.Service.RevokeToken(refreshToken)
	return nil
}

func (a *AuthServiceImpl) issueTokens(subjectID, email string, employeeID *string, isAdmin bool) (auth.LoginResponse, error) {
	var resp auth.LoginResponse
	var err error

	resp.AccessToken, resp.AccessTokenExpiresIn, err = a.Service.GenerateAccessToken(subjectID, email, employeeID, isAdmin)
	if err != nil {
		return auth.LoginResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}

	resp.RefreshToken, resp.RefreshTokenExpiresIn, err = a.Service.GenerateRefreshToken(subjectID)
	if err != nil {
		return auth.LoginResponse{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return resp, nil
}
