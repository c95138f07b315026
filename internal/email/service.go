// Package email delivers account notices over SMTP.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/redmonkez12/account-api/internal/config"
	"github.com/redmonkez12/account-api/internal/logging"
)

// sendMail is replaced in tests
var sendMail = smtp.SendMail

var passwordChangedTemplate = template.Must(template.New("passwordChanged").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            background-color: #4F46E5;
            color: white;
            padding: 20px;
            text-align: center;
            border-radius: 5px 5px 0 0;
        }
        .content {
            background-color: #f9f9f9;
            padding: 30px;
            border-radius: 0 0 5px 5px;
        }
        .footer {
            margin-top: 30px;
            font-size: 12px;
            color: #666;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>Password Changed</h1>
    </div>
    <div class="content">
        <h2>Your password was changed</h2>
        <p>The password for {{.Email}} was changed on {{.ChangedAt}}.</p>
        <p style="margin-top: 30px;">If you did not make this change, contact support right away.</p>
    </div>
    <div class="footer">
        <p>&copy; {{.Year}} Account API. All rights reserved.</p>
    </div>
</body>
</html>
`))

type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	logger       *logging.Logger
	now          func() time.Time
}

func NewService(cfg config.EmailConfig, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUser:     cfg.SMTPUser,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    cfg.SMTPUser,
		logger:       logger,
		now:          time.Now,
	}
}

// SendPasswordChangedEmail tells the account owner their password changed.
// This method is designed to be called in a goroutine
func (s *Service) SendPasswordChangedEmail(ctx context.Context, toEmail string) error {
	now := s.now().UTC()

	var buf bytes.Buffer
	err := passwordChangedTemplate.Execute(&buf, struct {
		Email     string
		ChangedAt string
		Year      int
	}{
		Email:     toEmail,
		ChangedAt: now.Format(time.RFC1123),
		Year:      now.Year(),
	})
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Your password was changed", buf.String()); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("password changed email sent", "email", toEmail)
	return nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	// Build message
	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return sendMail(addr, auth, s.fromEmail, []string{to}, msg)
}
