package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

//go:embed templates/*.html
var templates embed.FS

var stageChangedTmpl = template.Must(template.ParseFS(templates, "templates/stage_changed.html"))

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		From:   from,
		Dialer: gomail.NewDialer(host, port, user, password),
	}
}

// StageChanged emails the prospect owner when assigned_to is an address.
// Owners recorded by user id only are skipped.
func (s *EmailSender) StageChanged(ctx context.Context, p entity.Prospect, fromStage int, actor entity.Actor) error {
	to := strings.TrimSpace(p.AssignedTo)
	if !strings.Contains(to, "@") {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := StageChangedEmailData{
		OwnerName:   ownerName(to),
		CompanyName: p.CompanyName,
		ContactName: p.ContactName,
		FromStage:   stageLabel(fromStage),
		ToStage:     stageLabel(p.CurrentStage),
		Stage:       p.CurrentStage,
		ChangedBy:   actor.Label(),
	}
	if p.NextStep != nil {
		data.NextStep = *p.NextStep
	}

	var body bytes.Buffer
	if err := stageChangedTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render stage email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("%s moved to %s", p.CompanyName, data.ToStage))
	m.SetBody("text/html", body.String())

	if err := s.Dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send SMTP email: %w", err)
	}
	return nil
}

func stageLabel(stage int) string {
	if name, ok := entity.StageNames[stage]; ok {
		return fmt.Sprintf("%d. %s", stage, name)
	}
	return "new"
}

func ownerName(email string) string {
	return strings.SplitN(email, "@", 2)[0]
}
