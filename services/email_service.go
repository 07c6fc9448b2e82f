package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sahilchouksey/course-marketplace/utils/logger"
)

// EmailService renders and sends the transactional emails
type EmailService struct {
	mailer    Mailer
	clientURL string
	log       *logger.Logger
}

// NewEmailService creates a new email service instance
func NewEmailService(mailer Mailer, clientURL string, log *logger.Logger) *EmailService {
	return &EmailService{mailer: mailer, clientURL: clientURL, log: log.With("service", "EmailService")}
}

// ReceiptLine is one purchased course in a receipt
type ReceiptLine struct {
	Title string
	Price int64
}

var emailLayout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #5624d0;">{{.Title}}</h2>
  <p>Hello {{.Name}},</p>
  {{if .Code}}<p>Your verification code is</p>
  <p style="font-size: 28px; letter-spacing: 6px; font-weight: 700;">{{.Code}}</p>
  <p>The code expires in 3 minutes.</p>{{end}}
  {{if .Link}}<p><a href="{{.Link}}" style="background: #5624d0; color: #fff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">{{.LinkLabel}}</a></p>
  <p style="font-size: 12px; color: #666; word-break: break-all;">{{.Link}}</p>{{end}}
  {{if .Lines}}<table style="width: 100%; border-collapse: collapse;">
    {{range .Lines}}<tr><td style="padding: 6px 0;">{{.Title}}</td><td style="text-align: right;">{{$.Currency}} {{.Price}}</td></tr>{{end}}
    <tr><td style="padding-top: 10px; font-weight: 700;">Total</td><td style="text-align: right; font-weight: 700;">{{.Currency}} {{.Total}}</td></tr>
  </table>{{end}}
  <p style="margin-top: 30px; font-size: 12px; color: #999;">{{.Footer}}</p>
</body>
</html>`))

type emailData struct {
	Title     string
	Name      string
	Code      string
	Link      string
	LinkLabel string
	Lines     []ReceiptLine
	Currency  string
	Total     int64
	Footer    string
}

func (e *EmailService) render(data emailData) (string, error) {
	if data.Name == "" {
		data.Name = "there"
	}
	var buf bytes.Buffer
	if err := emailLayout.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendSignupOTP emails the one-time code that completes registration
func (e *EmailService) SendSignupOTP(ctx context.Context, to, name, code string) error {
	html, err := e.render(emailData{
		Title:  "Verify your email",
		Name:   name,
		Code:   code,
		Footer: "If you did not try to sign up, you can ignore this email.",
	})
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, MailMessage{
		To: to, ToName: name, Subject: "Your verification code",
		HTML: html, Text: fmt.Sprintf("Your verification code is %s. It expires in 3 minutes.", code),
	})
}

// SendPasswordReset emails a reset link valid for one hour
func (e *EmailService) SendPasswordReset(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", e.clientURL, token)
	html, err := e.render(emailData{
		Title:     "Reset your password",
		Name:      name,
		Link:      link,
		LinkLabel: "Reset Password",
		Footer:    "This link expires in 1 hour. If you didn't request a password reset, please ignore this email.",
	})
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, MailMessage{
		To: to, ToName: name, Subject: "Reset your password",
		HTML: html, Text: "Reset your password: " + link,
	})
}

// SendPurchaseReceipt confirms the courses a payment enrolled the user in
func (e *EmailService) SendPurchaseReceipt(ctx context.Context, to, name, currency string, lines []ReceiptLine) error {
	var total int64
	for _, l := range lines {
		total += l.Price
	}
	html, err := e.render(emailData{
		Title:     "Thanks for your purchase",
		Name:      name,
		Lines:     lines,
		Currency:  currency,
		Total:     total,
		Link:      e.clientURL + "/my-learning",
		LinkLabel: "Start learning",
		Footer:    "You can find your courses under My Learning at any time.",
	})
	if err != nil {
		return err
	}
	return e.mailer.Send(ctx, MailMessage{
		To: to, ToName: name, Subject: "Your course purchase",
		HTML: html, Text: fmt.Sprintf("You are enrolled in %d course(s). Total %s %d.", len(lines), currency, total),
	})
}
