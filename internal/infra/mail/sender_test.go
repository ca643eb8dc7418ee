package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/prospect-crm/internal/entity"
)

type capturingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *capturingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func prospectAt(stage int, owner string) entity.Prospect {
	next := "Schedule roadmap review"
	return entity.Prospect{
		ID:           "p-1",
		CompanyName:  "Acme",
		ContactName:  "Wile E. Coyote",
		AssignedTo:   owner,
		CurrentStage: stage,
		NextStep:     &next,
	}
}

func TestStageChangedSendsOwnerEmail(t *testing.T) {
	dialer := &capturingDialer{}
	sender := &EmailSender{From: "crm@irrelevant.dev", Dialer: dialer}

	err := sender.StageChanged(context.Background(), prospectAt(3, "ana@irrelevant.dev"), 2, entity.Actor{Email: "bob@irrelevant.dev"})

	require.NoError(t, err)
	require.Len(t, dialer.sent, 1)
	m := dialer.sent[0]
	assert.Equal(t, []string{"ana@irrelevant.dev"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Acme moved to 3. Roadmap & Value Proposition"}, m.GetHeader("Subject"))

	var body bytes.Buffer
	_, err = m.WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "bob@irrelevant.dev")
	assert.Contains(t, body.String(), "Schedule roadmap review")
}

func TestStageChangedSkipsNonEmailOwner(t *testing.T) {
	dialer := &capturingDialer{}
	sender := &EmailSender{From: "crm@irrelevant.dev", Dialer: dialer}

	err := sender.StageChanged(context.Background(), prospectAt(2, "8f14e45f-ceea-467f-a8f8-3c4f6b7e2a10"), 1, entity.Actor{})

	require.NoError(t, err)
	assert.Empty(t, dialer.sent)
}

func TestStageChangedSMTPFailure(t *testing.T) {
	smtpDown := errors.New("dial tcp: connection refused")
	sender := &EmailSender{From: "crm@irrelevant.dev", Dialer: &capturingDialer{err: smtpDown}}

	err := sender.StageChanged(context.Background(), prospectAt(4, "ana@irrelevant.dev"), 3, entity.Actor{})

	assert.ErrorIs(t, err, smtpDown)
}

func TestStageLabel(t *testing.T) {
	assert.Equal(t, "5. Technical Handoff", stageLabel(5))
	assert.Equal(t, "new", stageLabel(0))
}
