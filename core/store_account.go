package core

import "context"

const (
	fallbackAccountMessage = "Request failed"
	accountUnavailable     = "Account api is not configured"
)

func (s *Store) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (MessageResponse, error) {
	return runAccountAction(ctx, s, "forgot_password", req.Validate, func(ctx context.Context, api AccountAPI) (MessageResponse, error) {
		return api.ForgotPassword(ctx, req)
	})
}

func (s *Store) ResetPassword(ctx context.Context, req ResetPasswordRequest) (MessageResponse, error) {
	return runAccountAction(ctx, s, "reset_password", req.Validate, func(ctx context.Context, api AccountAPI) (MessageResponse, error) {
		return api.ResetPassword(ctx, req)
	})
}

func (s *Store) ChangePassword(ctx context.Context, req ChangePasswordRequest) (MessageResponse, error) {
	return runAccountAction(ctx, s, "change_password", req.Validate, func(ctx context.Context, api AccountAPI) (MessageResponse, error) {
		return api.ChangePassword(ctx, req)
	})
}

// Profile fetches the current user from the API. The held session is not
// modified.
func (s *Store) Profile(ctx context.Context) (UserInfo, error) {
	return runAccountAction(ctx, s, "profile", nil, func(ctx context.Context, api AccountAPI) (UserInfo, error) {
		return api.GetProfile(ctx)
	})
}

func (s *Store) CheckEmailAvailability(ctx context.Context, email string) (EmailAvailability, error) {
	validate := func() error { return validateEmail(email) }
	return runAccountAction(ctx, s, "check_email", validate, func(ctx context.Context, api AccountAPI) (EmailAvailability, error) {
		return api.CheckEmailAvailability(ctx, email)
	})
}

func runAccountAction[T any](
	ctx context.Context,
	s *Store,
	operation string,
	validate func() error,
	call func(context.Context, AccountAPI) (T, error),
) (out T, err error) {
	op := s.track(ctx, operation)
	defer func() { op.done(err) }()

	s.begin()
	if s.account == nil {
		failure := &UnknownError{Message: accountUnavailable}
		s.finish(transition{failure: failure})
		return out, failure
	}
	if validate != nil {
		if validationErr := validate(); validationErr != nil {
			failure := Normalize(validationErr, fallbackAccountMessage)
			s.finish(transition{failure: failure})
			return out, failure
		}
	}
	result, callErr := call(ctx, s.account)
	if callErr != nil {
		failure := Normalize(callErr, fallbackAccountMessage)
		s.finish(transition{failure: failure})
		return out, failure
	}
	s.finish(transition{})
	return result, nil
}
