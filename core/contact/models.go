package contact

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edutrack/core"
)

// Message is a contact form submission.
type Message struct {
	Name    string `json:"name" validate:"required,notblank,max=100"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
	Subject string `json:"subject" validate:"required,notblank,max=200"`
	Message string `json:"message" validate:"required,notblank,min=10,max=5000"`
}

func (m *Message) Validate(validate *validator.Validate) error {
	m.Name = core.CleanString(m.Name)
	m.Email = core.CleanString(m.Email, true /* lower */)
	m.Phone = core.CleanString(m.Phone)
	m.Subject = core.CleanString(m.Subject)
	m.Message = core.CleanString(m.Message)
	return validate.Struct(m)
}
