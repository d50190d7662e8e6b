package utils

import "errors"

var (
	ErrNameRequired    = errors.New("Name is required.")
	ErrEmailInvalid    = errors.New("Valid email is required.")
	ErrMessageRequired = errors.New("Message is required.")
	ErrInvalidContact  = errors.New("Invalid contact request.")
)
