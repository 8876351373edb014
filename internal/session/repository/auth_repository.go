package repository

import (
	"context"

	"giveback_client/internal/session/domain"
	"giveback_client/pkg/restclient"
)

// AuthRepository definition auth endpoints
type AuthRepository interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)
	Register(ctx context.Context, name, email, password string, role domain.Role) error
}

type authRepository struct {
	api *restclient.Client
}

// NewAuthRepository create a AuthRepository
func NewAuthRepository(api *restclient.Client) AuthRepository {
	return &authRepository{api: api}
}

func (r *authRepository) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var result domain.LoginResult
	if err := r.api.Post(ctx, "/api/auth/login", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *authRepository) Register(ctx context.Context, name, email, password string, role domain.Role) error {
	body := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
		"userType": string(role),
	}
	return r.api.Post(ctx, "/api/auth/register", body, nil)
}
