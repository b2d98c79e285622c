package domain

import (
	"errors"
)

var (
	MessageSuccessRegister    = "user registered successfully"
	MessageSuccessLogin       = "login success"
	MessageSuccessLogout      = "logout success"
	MessageSuccessGetUser     = "success get user"
	MessageSuccessGetUsers    = "success get users"
	MessageSuccessSetPassword = "password changed successfully"

	MessageFailedRegister    = "failed to register user"
	MessageFailedLogin       = "failed to login"
	MessageFailedGetUser     = "failed to get user"
	MessageFailedGetUsers    = "failed to get users"
	MessageFailedSetPassword = "failed to change password"

	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

type (
	RegisterRequest struct {
		Email     string `json:"email" validate:"required,email,max=254"`
		Username  string `json:"username" validate:"required,max=150,username"`
		FirstName string `json:"first_name" validate:"required,max=150"`
		LastName  string `json:"last_name" validate:"required,max=150"`
		Password  string `json:"password" validate:"required,min=8,max=150"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		AuthToken string `json:"auth_token"`
	}

	SetPasswordRequest struct {
		NewPassword     string `json:"new_password" validate:"required,min=8,max=150"`
		CurrentPassword string `json:"current_password" validate:"required"`
	}

	UserResponse struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		Username     string `json:"username"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		IsSubscribed bool   `json:"is_subscribed"`
	}
)
