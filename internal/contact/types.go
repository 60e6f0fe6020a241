package contact

import (
	"time"

	"github.com/google/uuid"
)

// Inquiry is a message submitted through the contact page or API.
type Inquiry struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Receipt acknowledges a stored inquiry.
type Receipt struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
