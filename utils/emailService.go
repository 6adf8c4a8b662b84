package utils

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Mailer interface {
	Send(ctx context.Context, toName, toEmail, subject, htmlBody string) error
}

type SendgridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewMailer picks sendgrid when an API key is configured and falls back to
// writing messages to the log.
func NewMailer(apiKey, sender string, log *Logger) Mailer {
	if apiKey == "" {
		return &LogMailer{log: log}
	}
	return &SendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail("LearnHub", sender),
	}
}

func (m *SendgridMailer) Send(ctx context.Context, toName, toEmail, subject, htmlBody string) error {
	msg := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail(toName, toEmail), "", htmlBody)
	res, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sending email: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

type LogMailer struct {
	log *Logger
}

func (m *LogMailer) Send(_ context.Context, _, toEmail, subject, _ string) error {
	m.log.Info("Email not sent, no provider configured", "to", toEmail, "subject", subject)
	return nil
}

// SendCourseCompletedEmail congratulates a student on finishing a course.
func SendCourseCompletedEmail(ctx context.Context, m Mailer, name, email, courseTitle string) error {
	subject := fmt.Sprintf("You completed %s", courseTitle)
	body := fmt.Sprintf(`
		<h2>Congratulations, %s!</h2>
		<p>You have completed every lesson in <strong>%s</strong>.</p>
	`, name, courseTitle)
	return m.Send(ctx, name, email, subject, getEmailTemplate("Course Completed", body))
}

func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1E3A5F; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; }
			.content { padding: 40px 30px; color: #1E3A5F; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>%s</h1></div>
			<div class="content">%s</div>
			<div class="footer">LearnHub</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}
