package transport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goliatone/go-auth-session/core"
)

const (
	EndpointRegister       = "/api/auth/register"
	EndpointLogin          = "/api/auth/login"
	EndpointGoogle         = "/api/auth/google"
	EndpointApple          = "/api/auth/apple"
	EndpointRefresh        = "/api/auth/refresh"
	EndpointLogout         = "/api/auth/logout"
	EndpointForgotPassword = "/api/auth/forgot-password"
	EndpointResetPassword  = "/api/auth/reset-password"
	EndpointChangePassword = "/api/auth/change-password"
	EndpointProfile        = "/api/auth/me"
	EndpointCheckEmail     = "/api/auth/check-email"
)

func (c *Client) Register(ctx context.Context, req core.RegisterRequest) (core.AuthResponse, error) {
	return post[core.AuthResponse](ctx, c, EndpointRegister, req)
}

func (c *Client) Login(ctx context.Context, req core.LoginRequest) (core.AuthResponse, error) {
	return post[core.AuthResponse](ctx, c, EndpointLogin, req)
}

func (c *Client) GoogleAuth(ctx context.Context, req core.GoogleAuthRequest) (core.AuthResponse, error) {
	return post[core.AuthResponse](ctx, c, EndpointGoogle, req)
}

func (c *Client) AppleAuth(ctx context.Context, req core.AppleAuthRequest) (core.AuthResponse, error) {
	return post[core.AuthResponse](ctx, c, EndpointApple, req)
}

func (c *Client) RefreshToken(ctx context.Context, req core.RefreshTokenRequest) (core.AuthResponse, error) {
	return post[core.AuthResponse](ctx, c, EndpointRefresh, req)
}

func (c *Client) Logout(ctx context.Context, req core.RefreshTokenRequest) (core.MessageResponse, error) {
	return post[core.MessageResponse](ctx, c, EndpointLogout, req)
}

func (c *Client) ForgotPassword(ctx context.Context, req core.ForgotPasswordRequest) (core.MessageResponse, error) {
	return post[core.MessageResponse](ctx, c, EndpointForgotPassword, req)
}

func (c *Client) ResetPassword(ctx context.Context, req core.ResetPasswordRequest) (core.MessageResponse, error) {
	return post[core.MessageResponse](ctx, c, EndpointResetPassword, req)
}

func (c *Client) ChangePassword(ctx context.Context, req core.ChangePasswordRequest) (core.MessageResponse, error) {
	return post[core.MessageResponse](ctx, c, EndpointChangePassword, req)
}

func (c *Client) GetProfile(ctx context.Context) (core.UserInfo, error) {
	var out core.UserInfo
	err := c.Request(ctx, EndpointProfile, http.MethodGet, nil, nil, &out)
	return out, err
}

func (c *Client) CheckEmailAvailability(ctx context.Context, email string) (core.EmailAvailability, error) {
	var out core.EmailAvailability
	endpoint := EndpointCheckEmail + "?email=" + url.QueryEscape(email)
	err := c.Request(ctx, endpoint, http.MethodGet, nil, nil, &out)
	return out, err
}

func post[T any](ctx context.Context, c *Client, endpoint string, body any) (T, error) {
	var out T
	err := c.Request(ctx, endpoint, http.MethodPost, body, nil, &out)
	return out, err
}
