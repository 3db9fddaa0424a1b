package core

import (
	"context"
	"fmt"
	"sync"
)

type stubAPI struct {
	mu    sync.Mutex
	calls map[string]int

	register       func(context.Context, RegisterRequest) (AuthResponse, error)
	login          func(context.Context, LoginRequest) (AuthResponse, error)
	googleAuth     func(context.Context, GoogleAuthRequest) (AuthResponse, error)
	appleAuth      func(context.Context, AppleAuthRequest) (AuthResponse, error)
	refresh        func(context.Context, RefreshTokenRequest) (AuthResponse, error)
	logout         func(context.Context, RefreshTokenRequest) (MessageResponse, error)
	forgotPassword func(context.Context, ForgotPasswordRequest) (MessageResponse, error)
	checkEmail     func(context.Context, string) (EmailAvailability, error)
}

func newStubAPI() *stubAPI {
	return &stubAPI{calls: map[string]int{}}
}

func (s *stubAPI) track(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
}

func (s *stubAPI) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubAPI) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	s.track("register")
	if s.register == nil {
		return authResponse("T1", "R1", "u1"), nil
	}
	return s.register(ctx, req)
}

func (s *stubAPI) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	s.track("login")
	if s.login == nil {
		return authResponse("T1", "R1", "u1"), nil
	}
	return s.login(ctx, req)
}

func (s *stubAPI) GoogleAuth(ctx context.Context, req GoogleAuthRequest) (AuthResponse, error) {
	s.track("google")
	if s.googleAuth == nil {
		return authResponse("G1", "GR1", "g1"), nil
	}
	return s.googleAuth(ctx, req)
}

func (s *stubAPI) AppleAuth(ctx context.Context, req AppleAuthRequest) (AuthResponse, error) {
	s.track("apple")
	if s.appleAuth == nil {
		return authResponse("A1", "AR1", "a1"), nil
	}
	return s.appleAuth(ctx, req)
}

func (s *stubAPI) RefreshToken(ctx context.Context, req RefreshTokenRequest) (AuthResponse, error) {
	s.track("refresh")
	if s.refresh == nil {
		return authResponse("T2", "R2", "u1"), nil
	}
	return s.refresh(ctx, req)
}

func (s *stubAPI) Logout(ctx context.Context, req RefreshTokenRequest) (MessageResponse, error) {
	s.track("logout")
	if s.logout == nil {
		return MessageResponse{Success: true}, nil
	}
	return s.logout(ctx, req)
}

func (s *stubAPI) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (MessageResponse, error) {
	s.track("forgot_password")
	if s.forgotPassword == nil {
		return MessageResponse{Success: true, Message: "sent"}, nil
	}
	return s.forgotPassword(ctx, req)
}

func (s *stubAPI) ResetPassword(context.Context, ResetPasswordRequest) (MessageResponse, error) {
	s.track("reset_password")
	return MessageResponse{Success: true}, nil
}

func (s *stubAPI) ChangePassword(context.Context, ChangePasswordRequest) (MessageResponse, error) {
	s.track("change_password")
	return MessageResponse{Success: true}, nil
}

func (s *stubAPI) GetProfile(context.Context) (UserInfo, error) {
	s.track("profile")
	return UserInfo{ID: "u1", Email: "a@b.com", Name: "Ada", Provider: ProviderEmail}, nil
}

func (s *stubAPI) CheckEmailAvailability(ctx context.Context, email string) (EmailAvailability, error) {
	s.track("check_email")
	if s.checkEmail == nil {
		return EmailAvailability{Available: true}, nil
	}
	return s.checkEmail(ctx, email)
}

func authResponse(access, refresh, userID string) AuthResponse {
	return AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User: UserInfo{
			ID:        userID,
			Email:     "a@b.com",
			Name:      "Ada",
			Provider:  ProviderEmail,
			CreatedAt: "2024-01-01T00:00:00Z",
		},
		ExpiresIn: 3600,
	}
}

// failingStorage wraps MemoryStorage and fails writes of one key.
type failingStorage struct {
	*MemoryStorage
	failSetKey string
	failGet    bool
}

func (f *failingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet {
		return "", false, fmt.Errorf("storage offline")
	}
	return f.MemoryStorage.Get(ctx, key)
}

func (f *failingStorage) Set(ctx context.Context, key string, value string) error {
	if key == f.failSetKey {
		return fmt.Errorf("quota exceeded")
	}
	return f.MemoryStorage.Set(ctx, key, value)
}

func newTestStore(api *stubAPI, storage Storage, opts ...Option) *Store {
	store, err := NewStore(api, storage, opts...)
	if err != nil {
		panic(err)
	}
	return store
}

func seedSession(storage *MemoryStorage, access, refresh string, user UserInfo) {
	ctx := context.Background()
	encoded, err := JSONUserCodec{}.Encode(user)
	if err != nil {
		panic(err)
	}
	_ = storage.Set(ctx, StorageKeyAccessToken, access)
	_ = storage.Set(ctx, StorageKeyRefreshToken, refresh)
	_ = storage.Set(ctx, StorageKeyUser, encoded)
}

func storedKeys(storage *MemoryStorage) []string {
	snapshot := storage.Snapshot()
	out := []string{}
	for _, key := range SessionKeys() {
		if _, ok := snapshot[key]; ok {
			out = append(out, key)
		}
	}
	return out
}
