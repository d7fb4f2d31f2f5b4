package mail

import (
	"bytes"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/brikvest/apiserver/config"
)

// Kinds of notification emails the platform sends.
const (
	KindOTP         = "otp"
	KindWelcome     = "welcome"
	KindKYCDecision = "kyc_decision"
)

// Job is a queued email, serialized onto the notification channel.
type Job struct {
	Kind string            `json:"kind"`
	To   string            `json:"to"`
	Data map[string]string `json:"data"`
}

var templates = map[string]*template.Template{
	KindOTP: template.Must(template.New(KindOTP).Parse(
		"Subject: Verify your email\r\n\r\n" +
			"Hi {{.FirstName}},\r\n\r\n" +
			"Your verification code is {{.Code}}. It expires in 5 minutes.\r\n")),
	KindWelcome: template.Must(template.New(KindWelcome).Parse(
		"Subject: Welcome to Brikvest\r\n\r\n" +
			"Hi {{.FirstName}},\r\n\r\n" +
			"Your email is verified and your account is ready.\r\n")),
	KindKYCDecision: template.Must(template.New(KindKYCDecision).Parse(
		"Subject: Your identity verification update\r\n\r\n" +
			"Hi {{.FirstName}},\r\n\r\n" +
			"Your KYC document was {{.Status}}.{{if .Note}} Note: {{.Note}}{{end}}\r\n")),
}

// Mailer sends templated emails over SMTP.
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send renders the template for job.Kind and delivers it. Callers are
// expected to treat failures as non-fatal.
func (m *Mailer) Send(job Job) error {
	if strings.TrimSpace(m.cfg.Host) == "" {
		return errors.New("smtp host is not configured")
	}
	tmpl, ok := templates[job.Kind]
	if !ok {
		return fmt.Errorf("unknown email kind %q", job.Kind)
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "From: %s\r\nTo: %s\r\n", m.cfg.From, job.To)
	if err := tmpl.Execute(&body, job.Data); err != nil {
		return fmt.Errorf("render %s email: %w", job.Kind, err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{job.To}, body.Bytes()); err != nil {
		return fmt.Errorf("send %s email to %s: %w", job.Kind, job.To, err)
	}
	return nil
}
