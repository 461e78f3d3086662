package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminEmailList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "orders@skygrowers.com", []string{"orders@skygrowers.com"}},
		{"multiple with spaces", " orders@skygrowers.com , warehouse@skygrowers.com ", []string{"orders@skygrowers.com", "warehouse@skygrowers.com"}},
		{"trailing comma", "orders@skygrowers.com,", []string{"orders@skygrowers.com"}},
		{"only commas", ",,,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &SMTPConfig{AdminEmails: tt.input}
			assert.Equal(t, tt.want, cfg.AdminEmailList())
		})
	}
}

func TestFromAddress(t *testing.T) {
	cfg := &SMTPConfig{User: "noreply@skygrowers.com", FromName: "Sky Growers Orders"}
	assert.Equal(t, `"Sky Growers Orders" <noreply@skygrowers.com>`, cfg.FromAddress())

	// Address part always comes from the SMTP user; name only defaults
	cfg.FromName = ""
	assert.Equal(t, `"Sky Growers" <noreply@skygrowers.com>`, cfg.FromAddress())
}

func TestReplyToAddress(t *testing.T) {
	cfg := &SMTPConfig{User: "noreply@skygrowers.com"}
	assert.Equal(t, "noreply@skygrowers.com", cfg.ReplyToAddress())

	cfg.ReplyTo = "hello@skygrowers.com"
	assert.Equal(t, "hello@skygrowers.com", cfg.ReplyToAddress())
}

func TestNewSMTPSenderSSLMode(t *testing.T) {
	implicit := NewSMTPSender(&SMTPConfig{Host: "smtp.zoho.com", Port: 465})
	assert.True(t, implicit.dialer.SSL)

	starttls := NewSMTPSender(&SMTPConfig{Host: "smtp.zoho.com", Port: 587})
	assert.False(t, starttls.dialer.SSL)
}
