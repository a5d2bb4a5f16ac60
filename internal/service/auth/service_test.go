package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/jwt"
)

const (
	testSecret     = "test-secret-key-for-jwt"
	testAccessExp  = "1h"
	testRefreshExp = "24h"
)

type stubUserRepo struct {
	users map[string]user.User
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (r *stubUserRepo) Create(_ context.Context, u user.User) (user.User, error) {
	return u, nil
}

type stubEmployeeRepo struct {
	employees map[string]employee.Employee
}

func (r *stubEmployeeRepo) Create(_ context.Context, emp employee.Employee) (employee.Employee, error) {
	return emp, nil
}

func (r *stubEmployeeRepo) GetByID(_ context.Context, id string) (employee.Employee, error) {
	emp, ok := r.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return emp, nil
}

func (r *stubEmployeeRepo) GetByCode(_ context.Context, code string) (employee.Employee, error) {
	for _, emp := range r.employees {
		if emp.EmployeeCode == code {
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (r *stubEmployeeRepo) Update(context.Context, employee.Employee) error { return nil }

func (r *stubEmployeeRepo) List(context.Context, employee.EmployeeFilter) ([]employee.Employee, int64, error) {
	return nil, 0, nil
}

func newTestAuthService(t *testing.T) auth.AuthService {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-password"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &stubUserRepo{users: map[string]user.User{
		"admin-1": {
			ID:           "admin-1",
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			IsAdmin:      true,
		},
	}}
	employees := &stubEmployeeRepo{employees: map[string]employee.Employee{
		"emp-1": {
			ID:           "emp-1",
			EmployeeCode: "1001-2001",
			FullName:     "Sari Wulandari",
			Phone:        "+628111222333",
			Active:       true,
		},
		"emp-2": {
			ID:           "emp-2",
			EmployeeCode: "1001-2002",
			Phone:        "+628111222444",
			Active:       false,
		},
	}}

	jwtService := jwt.NewJWTService(testSecret, testAccessExp, testRefreshExp)
	return NewAuthService(users, employees, jwtService)
}

func TestLoginWithValidCredentials(t *testing.T) {
	svc := newTestAuthService(t)

	tokens, err := svc.Login(context.Background(), auth.LoginRequest{
		Email:    "admin@example.com",
		Password: "admin-password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestLoginWithWrongPassword(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), auth.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginWithUnknownEmail(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.Login(context.Background(), auth.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginWithEmployeeCode(t *testing.T) {
	svc := newTestAuthService(t)

	tokens, err := svc.LoginWithEmployeeCode(context.Background(), auth.EmployeeLoginRequest{
		EmployeeCode: "1001-2001",
		Phone:        "+628111222333",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestLoginWithEmployeeCodeWrongPhone(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.LoginWithEmployeeCode(context.Background(), auth.EmployeeLoginRequest{
		EmployeeCode: "1001-2001",
		Phone:        "+628999999999",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginWithEmployeeCodeInactive(t *testing.T) {
	svc := newTestAuthService(t)

	_, err := svc.LoginWithEmployeeCode(context.Background(), auth.EmployeeLoginRequest{
		EmployeeCode: "1001-2002",
		Phone:        "+628111222444",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	tokens, err := svc.Login(ctx, auth.LoginRequest{
		Email:    "admin@example.com",
		Password: "admin-password",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, auth.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	tokens, err := svc.Login(ctx, auth.LoginRequest{
		Email:    "admin@example.com",
		Password: "admin-password",
	})
	require.NoError(t, err)

	_, err = svc.RefreshToken(ctx, auth.RefreshTokenRequest{RefreshToken: tokens.AccessToken})
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	tokens, err := svc.Login(ctx, auth.LoginRequest{
		Email:    "admin@example.com",
		Password: "admin-password",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, tokens.RefreshToken))

	_, err = svc.RefreshToken(ctx, auth.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.ErrorIs(t, err, auth.ErrRefreshTokenRevoked)
}
