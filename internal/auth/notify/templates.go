package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"math"
	texttemplate "text/template"
	"time"

	"github.com/aussiebroadwan/roomstay/internal/auth/domain"
)

// Message is a rendered email.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type templateData struct {
	Product     string
	DisplayName string
	Heading     string
	Intro       string
	Code        string
	Minutes     int
	Year        int
}

const codeText = `Hi {{.DisplayName}},

{{.Intro}}

    {{.Code}}

This code expires in {{.Minutes}} minutes. If you did not ask for it you can ignore this message.

The {{.Product}} team
`

const codeHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; background: #f6f6f6; padding: 24px;">
  <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
    <h2 style="margin-top: 0;">{{.Heading}}</h2>
    <p>Hi {{.DisplayName}},</p>
    <p>{{.Intro}}</p>
    <p style="font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center;">{{.Code}}</p>
    <p style="color: #666666;">This code expires in {{.Minutes}} minutes. If you did not ask for it you can ignore this message.</p>
  </div>
  <p style="text-align: center; color: #999999; font-size: 12px;">&copy; {{.Year}} {{.Product}}</p>
</body>
</html>
`

const welcomeText = `Hi {{.DisplayName}},

Your {{.Product}} account is ready. Welcome aboard.

The {{.Product}} team
`

const welcomeHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Helvetica, Arial, sans-serif; background: #f6f6f6; padding: 24px;">
  <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
    <h2 style="margin-top: 0;">Welcome to {{.Product}}</h2>
    <p>Hi {{.DisplayName}},</p>
    <p>Your account is ready. Welcome aboard.</p>
  </div>
  <p style="text-align: center; color: #999999; font-size: 12px;">&copy; {{.Year}} {{.Product}}</p>
</body>
</html>
`

var (
	codeTextTmpl    = texttemplate.Must(texttemplate.New("code.txt").Parse(codeText))
	codeHTMLTmpl    = htmltemplate.Must(htmltemplate.New("code.html").Parse(codeHTML))
	welcomeTextTmpl = texttemplate.Must(texttemplate.New("welcome.txt").Parse(welcomeText))
	welcomeHTMLTmpl = htmltemplate.Must(htmltemplate.New("welcome.html").Parse(welcomeHTML))
)

// RenderCode renders the email carrying a verification code.
func RenderCode(product, displayName, code string, purpose domain.Purpose, now time.Time) (Message, error) {
	data := templateData{
		Product:     product,
		DisplayName: displayName,
		Code:        code,
		Minutes:     int(math.Round(purpose.TTL().Minutes())),
		Year:        now.Year(),
	}

	var subject string
	switch purpose {
	case domain.PurposePasswordReset:
		subject = product + " - Password reset code"
		data.Heading = "Reset your password"
		data.Intro = "Use the code below to choose a new password."
	default:
		subject = product + " - Verify your email"
		data.Heading = "Verify your email"
		data.Intro = "Use the code below to finish creating your account."
	}

	return render(subject, data, codeTextTmpl, codeHTMLTmpl)
}

// RenderWelcome renders the message sent once an account exists.
func RenderWelcome(product, displayName string, now time.Time) (Message, error) {
	data := templateData{Product: product, DisplayName: displayName, Year: now.Year()}
	return render("Welcome to "+product, data, welcomeTextTmpl, welcomeHTMLTmpl)
}

func render(subject string, data templateData, text *texttemplate.Template, html *htmltemplate.Template) (Message, error) {
	if data.DisplayName == "" {
		data.DisplayName = "there"
	}

	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", text.Name(), err)
	}
	if err := html.Execute(&hb, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", html.Name(), err)
	}
	return Message{Subject: subject, Text: tb.String(), HTML: hb.String()}, nil
}
