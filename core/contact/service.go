package contact

import (
	"context"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
)

const templateName = "contact_message"

type Service struct {
	mailSvc   core.EmailService
	recipient mail.Address
	validate  *validator.Validate
}

func NewService(conf *core.Config, mailSvc core.EmailService, validate *validator.Validate) *Service {
	recipient := mail.Address{Name: conf.AppName, Address: conf.ContactRecipient}
	if addr, err := mail.ParseAddress(conf.ContactRecipient); err == nil {
		recipient = *addr
	}
	return &Service{mailSvc: mailSvc, recipient: recipient, validate: validate}
}

// Submit validates msg and forwards it by email to the contact recipient.
func (svc *Service) Submit(ctx context.Context, msg Message) error {
	if err := msg.Validate(svc.validate); err != nil {
		return err
	}

	sender := mail.Address{Name: msg.Name, Address: msg.Email}
	email := &core.EmailMessage{
		To:           []mail.Address{svc.recipient},
		ReplyTo:      &sender,
		Subject:      "Contact: " + msg.Subject,
		TemplateName: templateName,
		TemplateData: msg,
	}
	if err := svc.mailSvc.Send(ctx, email); err != nil {
		return errors.Wrap(err, "sending contact message")
	}
	return nil
}
