package alerts

import (
	"context"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	mail "github.com/wneessen/go-mail"

	"github.com/bomjesus/armazem-backend/pkg/config"
	"github.com/bomjesus/armazem-backend/pkg/db/models"
)

// EmailSender delivers one alert by e-mail.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PushSender delivers one alert to a Web Push subscription.
type PushSender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error
}

type smtpSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender builds an EmailSender backed by plain SMTP auth.
func NewSMTPSender(cfg config.SMTPConfig) EmailSender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(ctx context.Context, to, subject, body string) error {
	if !s.cfg.Configured() {
		return fmt.Errorf("smtp not configured")
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.cfg.Host,
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("building smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

type webPushSender struct {
	cfg config.WebPushConfig
}

// NewWebPushSender builds a PushSender using the configured VAPID key pair.
func NewWebPushSender(cfg config.WebPushConfig) PushSender {
	return &webPushSender{cfg: cfg}
}

func (s *webPushSender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error {
	if !s.cfg.Configured() {
		return fmt.Errorf("web push not configured")
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Subject,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}
