package service

import (
	"context"

	"github.com/alimikegami/digital-store/settlement-service/pkg/utils"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

type LogAlerter struct{}

func (LogAlerter) Alert(ctx context.Context, subject, body string) {
	log.Ctx(ctx).Warn().Str("component", "Alert").Str("subject", subject).Msg(body)
}

// MailAlerter emails the operator. Delivery happens off the caller's
// goroutine and failures are only logged.
type MailAlerter struct {
	smtp      utils.SMTPConfig
	sender    string
	recipient string
	send      func(*gomail.Message, utils.SMTPConfig) error
}

func CreateMailAlerter(smtp utils.SMTPConfig, sender, recipient string) Alerter {
	return &MailAlerter{
		smtp:      smtp,
		sender:    sender,
		recipient: recipient,
		send:      utils.SendEmail,
	}
}

func (a *MailAlerter) Alert(ctx context.Context, subject, body string) {
	LogAlerter{}.Alert(ctx, subject, body)

	m := gomail.NewMessage()
	m.SetHeader("From", a.sender)
	m.SetHeader("To", a.recipient)
	m.SetHeader("Subject", "[settlement] "+subject)
	m.SetBody("text/plain", body)

	logger := log.Ctx(ctx)
	go func() {
		if err := a.send(m, a.smtp); err != nil {
			logger.Error().Err(err).Str("component", "MailAlerter").Str("subject", subject).Msg("")
		}
	}()
}
