package model

import "time"

// ContactRequest is the raw contact form payload.
// Website is a honeypot field that humans never fill in.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Website string `json:"website"`
}

// ContactMessage is a validated submission ready for delivery
type ContactMessage struct {
	Name        string    `validate:"required,max=120"`
	Email       string    `validate:"required,email,max=200"`
	Phone       string    `validate:"max=40"`
	Message     string    `validate:"required,max=4000"`
	SubmittedAt time.Time `validate:"-"`
}

// OKResponse is the minimal success body used by the public endpoints
type OKResponse struct {
	OK bool `json:"ok"`
}
