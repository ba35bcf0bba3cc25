package auth

import (
	"errors"
	"strings"

	"mealsnap/internal/models"
)

// Message is a user-facing title/message pair the client shows in its themed
// modal. Action hints which screen the client should offer next.
type Message struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

var (
	MsgUserExists = Message{
		Title:   "Account Exists",
		Message: "Looks like you already have an account. Please sign in instead.",
		Action:  "LOGIN",
	}
	MsgUserNotFound = Message{
		Title:   "No Account Found",
		Message: "We couldn't find an account with this email. Would you like to create one?",
		Action:  "SIGNUP",
	}
	MsgPhoneNotFound = Message{
		Title:   "Not Found",
		Message: "No account is linked to this phone number. Please check and try again.",
	}
	MsgInvalidEmail = Message{
		Title:   "Invalid Email",
		Message: "Please enter a valid email address.",
	}
	MsgInvalidPassword = Message{
		Title:   "Invalid Password",
		Message: "Password must be at least 6 characters long.",
	}
	MsgInvalidPhone = Message{
		Title:   "Invalid Phone",
		Message: "Please enter a valid phone number with at least 10 digits.",
	}
	MsgInvalidCredentials = Message{
		Title:   "Oops!",
		Message: "The email or password you entered is incorrect. Please try again.",
	}
	MsgInvalidCode = Message{
		Title:   "Invalid Code",
		Message: "That code is incorrect or has expired. Please request a new one.",
	}
	MsgNetworkError = Message{
		Title:   "Connection Issue",
		Message: "Please check your internet connection and try again.",
	}
	MsgGenericError = Message{
		Title:   "Something Went Wrong",
		Message: "An unexpected error occurred. Please try again later.",
	}
)

// FriendlyError maps an auth failure to the message the client shows. Known
// sentinels match first; anything else falls back to substring matching over
// the error text, then to a generic message.
func FriendlyError(err error) Message {
	switch {
	case errors.Is(err, models.ErrEmailTaken):
		return MsgUserExists
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, ErrCodeInvalid):
		return MsgInvalidCode
	case errors.Is(err, models.ErrNotFound):
		return MsgUserNotFound
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "already registered") || strings.Contains(text, "already exists"):
		return MsgUserExists
	case strings.Contains(text, "invalid login credentials") ||
		strings.Contains(text, "user not found") ||
		strings.Contains(text, "invalid credentials"):
		return MsgUserNotFound
	case strings.Contains(text, "invalid email"):
		return MsgInvalidEmail
	case strings.Contains(text, "password") && (strings.Contains(text, "weak") || strings.Contains(text, "short")):
		return MsgInvalidPassword
	case strings.Contains(text, "network") || strings.Contains(text, "connection") || strings.Contains(text, "timeout"):
		return MsgNetworkError
	}
	return MsgGenericError
}
