package mailer

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	gomail "gopkg.in/gomail.v2"
)

// Sender delivers a rendered email to a single recipient. The worker treats
// it as an opaque capability; any error is a send failure on the retry path.
type Sender interface {
	Send(to, subject, html string) error
}

// SMTPConfig holds mail transport configuration.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	FromName string `mapstructure:"from_name"`
	ReplyTo  string `mapstructure:"reply_to"`
	// AdminEmails is a comma-separated list of addresses that receive
	// new-order notifications. Empty means no admin notifications.
	AdminEmails string `mapstructure:"admin_emails"`
}

// SMTPSender implements Sender over SMTP. Port 465 uses implicit TLS; other
// ports (587) negotiate STARTTLS, which the dialer does by default.
type SMTPSender struct {
	dialer *gomail.Dialer
	config *SMTPConfig
}

func NewSMTPSender(config *SMTPConfig) *SMTPSender {
	dialer := gomail.NewDialer(config.Host, config.Port, config.User, config.Password)
	dialer.SSL = config.Port == 465
	return &SMTPSender{dialer: dialer, config: config}
}

func (s *SMTPSender) Send(to, subject, html string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.FromAddress())
	m.SetHeader("To", to)
	m.SetHeader("Reply-To", s.config.ReplyToAddress())
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	logrus.Infof("Email sent to %s: %s", to, subject)
	return nil
}

// FromAddress builds the From header. The address part must match the
// authenticated SMTP user or relays like Zoho reject the message; the
// configured name is display only.
func (c *SMTPConfig) FromAddress() string {
	name := c.FromName
	if name == "" {
		name = "Sky Growers"
	}
	return fmt.Sprintf("%q <%s>", name, c.User)
}

// ReplyToAddress falls back to the SMTP user when no Reply-To is configured.
func (c *SMTPConfig) ReplyToAddress() string {
	if c.ReplyTo != "" {
		return c.ReplyTo
	}
	return c.User
}

// AdminEmailList parses the configured comma-separated admin addresses,
// trimming whitespace and dropping empty entries.
func (c *SMTPConfig) AdminEmailList() []string {
	var out []string
	for _, addr := range strings.Split(c.AdminEmails, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
