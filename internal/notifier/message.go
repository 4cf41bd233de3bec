package notifier

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// message is a rendered email ready for sending
type message struct {
	Subject   string
	HTMLBody  string
	PlainBody string
}

type sessionExpiredData struct {
	Username string
	Time     string
}

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlTemplate))
	textTmpl = texttemplate.Must(texttemplate.New("text").Parse(plainTemplate))
)

func buildMessage(data sessionExpiredData) (*message, error) {
	var html, plain bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	if err := textTmpl.Execute(&plain, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	subject := "selectbot: X session expired"
	if data.Username != "" {
		subject = fmt.Sprintf("selectbot: X session for @%s expired", data.Username)
	}
	return &message{
		Subject:   subject,
		HTMLBody:  html.String(),
		PlainBody: plain.String(),
	}, nil
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; color: #14171a;">
  <h2>🎯 SelectBot disconnected</h2>
  <p>The X session{{if .Username}} for <strong>@{{.Username}}</strong>{{end}} was found logged out at {{.Time}}.</p>
  <p>Open the dashboard and connect again. You may need to enter a verification code in the browser window.</p>
</body>
</html>
`

const plainTemplate = `SelectBot disconnected

The X session{{if .Username}} for @{{.Username}}{{end}} was found logged out at {{.Time}}.

Open the dashboard and connect again. You may need to enter a verification code in the browser window.
`
