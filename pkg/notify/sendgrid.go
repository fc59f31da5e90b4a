package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Config carries the credentials for both delivery channels.
type Config struct {
	SendGridKey      string
	EmailFrom        string
	EmailFromName    string
	TwilioAccountSID string
	TwilioAuthToken  string
	SMSFrom          string
}

// CloudNotifier sends email through SendGrid and SMS through Twilio.
type CloudNotifier struct {
	email   *sendgrid.Client
	sms     *twilio.RestClient
	from    *sgmail.Email
	smsFrom string
}

var _ Notifier = (*CloudNotifier)(nil)

// NewCloudNotifier constructs a notifier from credentials.
func NewCloudNotifier(cfg Config) *CloudNotifier {
	return &CloudNotifier{
		email: sendgrid.NewSendClient(cfg.SendGridKey),
		sms: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		}),
		from:    sgmail.NewEmail(cfg.EmailFromName, cfg.EmailFrom),
		smsFrom: cfg.SMSFrom,
	}
}

// SendEmail delivers a plain-text email to a single recipient.
func (n *CloudNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("notify: recipient email required")
	}
	message := sgmail.NewSingleEmail(n.from, subject, sgmail.NewEmail("", to), body, "")
	resp, err := n.email.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notify: sendgrid send failed (%d): %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// SendSMS delivers a text message to a single phone number.
func (n *CloudNotifier) SendSMS(_ context.Context, to, body string) error {
	if to == "" {
		return fmt.Errorf("notify: recipient phone required")
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(n.smsFrom)
	params.SetBody(body)
	if _, err := n.sms.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("notify: twilio send: %w", err)
	}
	return nil
}
