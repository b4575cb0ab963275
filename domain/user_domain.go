package domain

import (
	"errors"
)

var (
	MessageSuccessRegister         = "user registered successfully"
	MessageSuccessLogin            = "login success"
	MessageSuccessGetMe            = "success get current user"
	MessageSuccessGetUsers         = "success get users"
	MessageSuccessGetProfile       = "success get user profile"
	MessageSuccessUpdateAvatar     = "avatar updated successfully"
	MessageSuccessDeleteAvatar     = "avatar deleted successfully"
	MessageSuccessSubscribe        = "subscribed successfully"
	MessageSuccessUnsubscribe      = "unsubscribed successfully"
	MessageSuccessGetSubscriptions = "success get subscriptions"
	MessageSuccessForgotPassword   = "password reset email sent"
	MessageSuccessResetPassword    = "password reset successfully"

	MessageFailedRegister         = "failed to register user"
	MessageFailedLogin            = "failed to login"
	MessageFailedGetUsers         = "failed to get users"
	MessageFailedGetProfile       = "failed to get user profile"
	MessageFailedUpdateAvatar     = "failed to update avatar"
	MessageFailedSubscribe        = "failed to subscribe"
	MessageFailedUnsubscribe      = "failed to unsubscribe"
	MessageFailedGetSubscriptions = "failed to get subscriptions"
	MessageFailedForgotPassword   = "failed to send password reset email"
	MessageFailedResetPassword    = "failed to reset password"

	ErrUserNotFound          = errors.New("user not found")
	ErrEmailAlreadyExists    = errors.New("email already registered")
	ErrUsernameAlreadyExists = errors.New("username already taken")
	ErrCredentialsInvalid    = errors.New("wrong email or password")
	ErrSelfSubscription      = errors.New("cannot subscribe to yourself")
	ErrAlreadySubscribed     = errors.New("already subscribed to this user")
	ErrNotSubscribed         = errors.New("not subscribed to this user")
	ErrAvatarRequired        = errors.New("avatar is not selected")
)

type (
	RegisterRequest struct {
		Email     string `json:"email" validate:"required,email,max=254"`
		Username  string `json:"username" validate:"required,max=150,username"`
		FirstName string `json:"first_name" validate:"required,max=150"`
		LastName  string `json:"last_name" validate:"required,max=150"`
		Password  string `json:"password" validate:"required,min=8"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string       `json:"auth_token"`
		User  UserResponse `json:"user"`
	}

	UpdateAvatarRequest struct {
		Avatar string `json:"avatar" validate:"required"`
	}

	ForgotPasswordRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	ResetPasswordRequest struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"new_password" validate:"required,min=8"`
	}

	UserResponse struct {
		ID           uint   `json:"id"`
		Email        string `json:"email"`
		Username     string `json:"username"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		Avatar       string `json:"avatar,omitempty"`
		IsSubscribed bool   `json:"is_subscribed"`
	}

	// UserWithRecipesResponse enriches a profile with recipe previews,
	// truncated by recipes_limit, and the untruncated recipe count.
	UserWithRecipesResponse struct {
		UserResponse
		Recipes      []RecipeShortResponse `json:"recipes"`
		RecipesCount int64                 `json:"recipes_count"`
	}
)
