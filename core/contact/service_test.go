package contact_test

import (
	"context"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/assets"
	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/contact"
	emailsvc "github.com/trezcool/edutrack/services/email"
	logsvc "github.com/trezcool/edutrack/services/logger"
	testutil "github.com/trezcool/edutrack/tests"
)

func setup(t *testing.T) (*contact.Service, *emailsvc.ConsoleService) {
	t.Helper()
	conf := core.NewTestConfig()
	conf.ContactRecipient = "Front Desk <desk@edutrack.test>"
	logger := logsvc.NewDiscardLogger()
	require.NoError(t, core.ParseEmailTemplates(conf, assets.FS, assets.EmailTemplatesDir, logger))

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	validate, _ := testutil.NewValidator()
	return contact.NewService(conf, mailSvc, validate), mailSvc
}

func validMessage() contact.Message {
	return contact.Message{
		Name:    "  Jane Doe ",
		Email:   "Jane@Example.com",
		Phone:   "+243 970 000 000",
		Subject: "Admissions",
		Message: "When do the admissions open for next year?",
	}
}

func TestService_Submit(t *testing.T) {
	svc, mailSvc := setup(t)

	require.NoError(t, svc.Submit(context.Background(), validMessage()))

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	require.Len(t, msg.To, 1)
	assert.Equal(t, "desk@edutrack.test", msg.To[0].Address)
	assert.Equal(t, "Front Desk", msg.To[0].Name)
	require.NotNil(t, msg.ReplyTo)
	assert.Equal(t, "jane@example.com", msg.ReplyTo.Address)
	assert.Equal(t, "Jane Doe", msg.ReplyTo.Name)
	assert.Equal(t, "Contact: Admissions", msg.Subject)
	assert.Contains(t, msg.TextContent, "When do the admissions open for next year?")
	assert.Contains(t, msg.TextContent, "Phone: +243 970 000 000")
	assert.Contains(t, msg.HTMLContent, "Admissions")
}

func TestService_Submit_withoutPhone(t *testing.T) {
	svc, mailSvc := setup(t)
	msg := validMessage()
	msg.Phone = ""

	require.NoError(t, svc.Submit(context.Background(), msg))

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.False(t, strings.Contains(sent[0].TextContent, "Phone:"))
}

func TestService_Submit_invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(m *contact.Message)
		field  string
	}{
		{"missing name", func(m *contact.Message) { m.Name = "" }, "name"},
		{"blank name", func(m *contact.Message) { m.Name = "   " }, "name"},
		{"bad email", func(m *contact.Message) { m.Email = "jane@" }, "email"},
		{"bad phone", func(m *contact.Message) { m.Phone = "call me" }, "phone"},
		{"missing subject", func(m *contact.Message) { m.Subject = "" }, "subject"},
		{"long subject", func(m *contact.Message) { m.Subject = strings.Repeat("s", 201) }, "subject"},
		{"short message", func(m *contact.Message) { m.Message = "Hello" }, "message"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, mailSvc := setup(t)
			msg := validMessage()
			tc.modify(&msg)

			err := svc.Submit(context.Background(), msg)
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			require.Len(t, vErrs, 1)
			assert.Equal(t, tc.field, vErrs[0].Field())
			assert.Empty(t, mailSvc.SentMessages())
		})
	}
}
