package sender

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"fulfillment-service/config"

	gopkgmail "gopkg.in/gomail.v2"
)

type EmailNotification struct {
	To       string
	Subject  string
	Template string         // имя шаблона (например, "order_confirmed")
	Data     map[string]any // данные для шаблона
}

type EmailSender struct {
	cfg *config.Notifier
}

func NewEmailSender(cfg *config.Notifier) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Render возвращает html и текстовую версию письма.
func (s *EmailSender) Render(n EmailNotification) (htmlBody, plainBody string, err error) {
	htmlBody, err = s.renderHTML(n.Template, n.Data)
	if err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}
	plainBody, err = s.renderPlain(n.Template, n.Data)
	if err != nil {
		return "", "", fmt.Errorf("render plain: %w", err)
	}
	return htmlBody, plainBody, nil
}

func (s *EmailSender) SendEmail(n EmailNotification) error {
	htmlBody, plainBody, err := s.Render(n)
	if err != nil {
		return err
	}

	m := gopkgmail.NewMessage()
	m.SetHeader("From", s.cfg.SMTPFrom)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if strings.Contains(htmlBody, "cid:logo") {
		iconPath := filepath.Join(s.cfg.TMPLDir, "icon.png")
		if _, errStat := os.Stat(iconPath); errStat == nil {
			m.Embed(iconPath, gopkgmail.SetHeader(map[string][]string{"Content-ID": {"<logo>"}}))
		}
	}

	d := gopkgmail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPassword)
	d.SSL = s.cfg.SMTPPort == 465
	return d.DialAndSend(m)
}

func (s *EmailSender) renderHTML(tmplName string, data map[string]any) (string, error) {
	content, err := os.ReadFile(filepath.Join(s.cfg.TMPLDir, tmplName+".html"))
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(tmplName).Parse(string(content))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// текстовая версия без html-экранирования
func (s *EmailSender) renderPlain(tmplName string, data map[string]any) (string, error) {
	content, err := os.ReadFile(filepath.Join(s.cfg.TMPLDir, tmplName+".txt"))
	if err != nil {
		return "", err
	}
	tmpl, err := texttemplate.New(tmplName).Parse(string(content))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
