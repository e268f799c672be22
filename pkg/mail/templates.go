package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// OTPEmailData feeds the password reset templates.
type OTPEmailData struct {
	SiteName  string
	Name      string
	Code      string
	ExpiresIn time.Duration
}

// BuildOTPEmail renders the password reset code email. Callers set To.
func BuildOTPEmail(data OTPEmailData) Message {
	expires := humanDuration(data.ExpiresIn)
	var text bytes.Buffer
	fmt.Fprintf(&text, "Hello %s,\n\n", greetingName(data.Name))
	fmt.Fprintf(&text, "Your %s password reset code is: %s\n\n", data.SiteName, data.Code)
	fmt.Fprintf(&text, "This code expires in %s.\n\n", expires)
	text.WriteString("If you did not request a password reset, you can safely ignore this email.\n")

	return Message{
		Subject:  fmt.Sprintf("Your %s password reset code", data.SiteName),
		TextBody: text.String(),
		HTMLBody: render(otpHTML, struct {
			OTPEmailData
			Expires string
			Greet   string
		}{data, expires, greetingName(data.Name)}),
	}
}

// ContactEmailData feeds the contact form notification and acknowledgement.
type ContactEmailData struct {
	SiteName string
	Name     string
	Email    string
	Subject  string
	Message  string
	Received time.Time
}

// BuildContactNotification is sent to the operators. Reply-To points at the sender.
func BuildContactNotification(data ContactEmailData) Message {
	var text bytes.Buffer
	fmt.Fprintf(&text, "New contact message received %s\n\n", data.Received.Format(time.RFC1123))
	fmt.Fprintf(&text, "From: %s <%s>\nSubject: %s\n\n%s\n", data.Name, data.Email, data.Subject, data.Message)

	return Message{
		ReplyTo:  data.Email,
		Subject:  fmt.Sprintf("[%s contact] %s", data.SiteName, data.Subject),
		TextBody: text.String(),
		HTMLBody: render(contactHTML, data),
	}
}

// BuildContactAcknowledgement confirms receipt to the sender.
func BuildContactAcknowledgement(data ContactEmailData, supportAddress string) Message {
	var text bytes.Buffer
	fmt.Fprintf(&text, "Hello %s,\n\n", greetingName(data.Name))
	fmt.Fprintf(&text, "Thanks for contacting %s. We received your message %q and will get back to you shortly.\n", data.SiteName, data.Subject)

	return Message{
		To:       data.Email,
		ReplyTo:  supportAddress,
		Subject:  fmt.Sprintf("We received your message: %s", data.Subject),
		TextBody: text.String(),
	}
}

func render(tmpl *template.Template, data interface{}) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

func greetingName(name string) string {
	if name == "" {
		return "there"
	}
	return name
}

func humanDuration(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	switch {
	case minutes <= 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}

var otpHTML = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Password reset</title></head>
<body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
    <tr><td align="center" style="padding:40px 20px;">
      <table role="presentation" width="100%" style="max-width:480px;background-color:#ffffff;border-radius:8px;">
        <tr><td style="padding:32px 32px 16px;text-align:center;border-bottom:1px solid #e5e7eb;">
          <h1 style="margin:0;font-size:22px;color:#1d4ed8;">{{.SiteName}}</h1>
        </td></tr>
        <tr><td style="padding:32px;">
          <p style="margin:0 0 16px;font-size:16px;color:#374151;">Hello {{.Greet}},</p>
          <p style="margin:0 0 24px;font-size:16px;color:#374151;">Use this code to reset your password:</p>
          <div style="background-color:#f3f4f6;border-radius:8px;padding:24px;text-align:center;margin-bottom:24px;">
            <span style="font-size:32px;font-weight:700;letter-spacing:8px;color:#1f2937;font-family:'Courier New',monospace;">{{.Code}}</span>
          </div>
          <p style="margin:0;font-size:14px;color:#6b7280;text-align:center;">This code expires in {{.Expires}}.</p>
        </td></tr>
        <tr><td style="padding:16px 32px;background-color:#f9fafb;border-top:1px solid #e5e7eb;border-radius:0 0 8px 8px;">
          <p style="margin:0;font-size:12px;color:#9ca3af;text-align:center;">If you did not request a password reset, you can ignore this email.</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

var contactHTML = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Contact message</title></head>
<body style="font-family:Arial,sans-serif;color:#374151;">
  <h2 style="color:#1d4ed8;">New contact message</h2>
  <p><strong>From:</strong> {{.Name}} &lt;{{.Email}}&gt;</p>
  <p><strong>Subject:</strong> {{.Subject}}</p>
  <p style="white-space:pre-wrap;border-left:3px solid #e5e7eb;padding-left:12px;">{{.Message}}</p>
</body>
</html>`))
