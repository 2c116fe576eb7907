package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
	"time"
)

const LoginSubject = "Notello login email"

// LoginParams is the data for the login email templates.
type LoginParams struct {
	Email      string
	Link       string
	ValidFor   time.Duration
	SenderName string
}

var loginText = template.Must(template.New("login.txt").Parse(`Hi {{.Email}},

Use the link below to log in to Notello:

{{.Link}}

The link works once and is valid for {{printf "%.f" .ValidFor.Minutes}} minutes.
Following it signs out any other login links you requested.

If you did not ask to log in, you can ignore this email.

{{.SenderName}}
`))

var loginHTML = htmltemplate.Must(htmltemplate.New("login.html").Parse(`<p>Hi {{.Email}},</p>
<p>Use the link below to log in to Notello:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link works once and is valid for {{printf "%.f" .ValidFor.Minutes}} minutes.
Following it signs out any other login links you requested.</p>
<p>If you did not ask to log in, you can ignore this email.</p>
<p>{{.SenderName}}</p>
`))

// LoginMessage renders the magic-link email addressed to p.Email.
func LoginMessage(p LoginParams) (Message, error) {
	if p.SenderName == "" {
		p.SenderName = "Notello"
	}

	var text, html bytes.Buffer
	if err := loginText.Execute(&text, p); err != nil {
		return Message{}, fmt.Errorf("render login text: %w", err)
	}
	if err := loginHTML.Execute(&html, p); err != nil {
		return Message{}, fmt.Errorf("render login html: %w", err)
	}

	return Message{
		To:      p.Email,
		Subject: LoginSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
