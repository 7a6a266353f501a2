package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainingcmd/portal/core"
)

var testConf = &core.Config{
	AppName: "Training Portal",
	Email:   core.EmailConfig{FromName: "Training Portal", FromAddress: "no-reply@portal.local"},
}

func TestServiceMock_SendMessages(t *testing.T) {
	svc := NewServiceMock(testConf)
	to := []mail.Address{{Name: "Somchai", Address: "somchai@unit.test"}}

	svc.SendMessages(
		&core.EmailMessage{To: to, Subject: "Plain", BodyStr: "Hello"},
		&core.EmailMessage{Subject: "No recipient", BodyStr: "Hello"},
		&core.EmailMessage{To: to, Subject: "No content"},
		&core.EmailMessage{To: to, Subject: "Unknown template", TemplateName: "nope"},
		&core.EmailMessage{To: to, Subject: "Reset", TemplateName: "password_reset", TemplateData: map[string]string{
			"Name": "Somchai", "Username": "somchai", "UID": "dWlk", "Token": "T-K", "ValidFor": "1 hour",
		}},
	)

	sent := svc.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Hello", sent[0].TextContent)
	assert.Empty(t, sent[0].HTMLContent)
	assert.Contains(t, sent[1].TextContent, "portal reset-password -uid dWlk -token T-K")
	assert.Contains(t, sent[1].HTMLContent, "<pre>portal reset-password -uid dWlk -token T-K</pre>")
}

func TestConsoleService_format(t *testing.T) {
	svc := NewConsoleService(testConf, core.NopLogger{}).(*consoleService)
	body, err := svc.format(core.EmailMessage{
		To:          []mail.Address{{Name: "Somchai", Address: "somchai@unit.test"}, {Address: "suksan@unit.test"}},
		Subject:     "Hi",
		TextContent: "text body",
		HTMLContent: "<p>html body</p>",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(body, `From: "Training Portal" <no-reply@portal.local>`+"\r\n"))
	assert.Contains(t, body, "Subject: [Training Portal] Hi\r\n")
	assert.Contains(t, body, `To: "Somchai" <somchai@unit.test>, <suksan@unit.test>`)
	assert.Contains(t, body, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, body, "text body")
	assert.Contains(t, body, "<p>html body</p>")
}
