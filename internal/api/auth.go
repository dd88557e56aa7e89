// internal/api/auth.go
package api

import (
	"context"
	"fmt"

	"alerta-vecinal/internal/models"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=150"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8,max=100"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
}

type AuthResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Login обменивает учётные данные на пару пользователь/токен.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	resp, err := c.newRequest().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/auth/login/")
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	resp, err := c.newRequest().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/auth/register/")
	if err != nil {
		return nil, fmt.Errorf("register request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return &out, nil
}

// NotifyLogout сообщает серверу об окончании сессии. Локальное состояние
// к этому моменту уже очищено вызывающим, поэтому токен передаётся явно.
func (c *Client) NotifyLogout(ctx context.Context, token string) error {
	resp, err := c.newRequest().
		SetContext(ctx).
		SetHeader("Authorization", "Token "+token).
		Post("/auth/logout/")
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	if resp.IsError() {
		return c.apiError(resp)
	}
	return nil
}

// Profile возвращает расширенный профиль текущего пользователя.
func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	var out models.Profile
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetResult(&out).
		Get("/user/profile/")
	if err != nil {
		return nil, fmt.Errorf("profile request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return &out, nil
}

type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty" binding:"omitempty,email"`
	Phone     *string `json:"phone,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, patch ProfileUpdate) (*models.Profile, error) {
	var out models.Profile
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetBody(patch).
		SetResult(&out).
		Patch("/user/profile/")
	if err != nil {
		return nil, fmt.Errorf("profile update request: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}
	return &out, nil
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"old_password" binding:"required"`
	NewPassword        string `json:"new_password" binding:"required,min=8,max=100"`
	NewPasswordConfirm string `json:"new_password_confirm" binding:"required,eqfield=NewPassword"`
}

func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	resp, err := c.newAuthRequest().
		SetContext(ctx).
		SetBody(req).
		Post("/user/change-password/")
	if err != nil {
		return fmt.Errorf("change password request: %w", err)
	}
	if resp.IsError() {
		return c.apiError(resp)
	}
	return nil
}
