package emailsvc

import (
	"context"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edutrack/core"
	logsvc "github.com/trezcool/edutrack/services/logger"
)

func newMock() *ConsoleService {
	conf := core.NewTestConfig()
	conf.SetDefaultFromEmail("EduTrack <noreply@edutrack.test>")
	return NewConsoleServiceMock(conf, logsvc.NewDiscardLogger())
}

func TestConsoleService_Send(t *testing.T) {
	svc := newMock()
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "Admin", Address: "admin@edutrack.test"}},
		ReplyTo: &mail.Address{Address: "parent@example.com"},
		Subject: "Hello",
		BodyStr: "plain body",
	}

	require.NoError(t, svc.Send(context.Background(), msg))

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "plain body", sent[0].TextContent)
	assert.Equal(t, "Hello", sent[0].Subject)
}

func TestConsoleService_Send_errors(t *testing.T) {
	tests := []struct {
		name    string
		msg     *core.EmailMessage
		wantErr error
	}{
		{
			name:    "no recipients",
			msg:     &core.EmailMessage{Subject: "Hello", BodyStr: "body"},
			wantErr: errNoRecipients,
		},
		{
			name:    "no content",
			msg:     &core.EmailMessage{To: []mail.Address{{Address: "admin@edutrack.test"}}, Subject: "Hello"},
			wantErr: errNoContent,
		},
		{
			name: "unknown template",
			msg: &core.EmailMessage{
				To:           []mail.Address{{Address: "admin@edutrack.test"}},
				TemplateName: "does_not_exist",
			},
			wantErr: errNoContent,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newMock()
			assert.Equal(t, tc.wantErr, svc.Send(context.Background(), tc.msg))
			assert.Empty(t, svc.SentMessages())
		})
	}
}

func TestConsoleService_format(t *testing.T) {
	svc := newMock()
	body, err := svc.format(core.EmailMessage{
		To:          []mail.Address{{Name: "Admin", Address: "admin@edutrack.test"}},
		ReplyTo:     &mail.Address{Name: "Jane", Address: "jane@example.com"},
		Subject:     "Report",
		TextContent: "text",
		HTMLContent: "<p>html</p>",
	})

	require.NoError(t, err)
	assert.Contains(t, body, "From: \"EduTrack\" <noreply@edutrack.test>\r\n")
	assert.Contains(t, body, "Reply-To: \"Jane\" <jane@example.com>\r\n")
	assert.Contains(t, body, "Subject: [EduTrack] Report\r\n")
	assert.Contains(t, body, "text/plain; charset=utf-8")
	assert.Contains(t, body, "<p>html</p>")
}
