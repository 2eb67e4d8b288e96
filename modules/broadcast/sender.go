package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender delivers a single message to one recipient. Implementations
// must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, channel Channel, to, message string) error
}

// TwilioConfig configures the Twilio-backed sender.
type TwilioConfig struct {
	AccountSID   string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken    string `env:"TWILIO_AUTH_TOKEN"`
	SMSFrom      string `env:"TWILIO_SMS_FROM"`      // E.164 number for SMS
	WhatsAppFrom string `env:"TWILIO_WHATSAPP_FROM"` // E.164 number for WhatsApp
}

// TwilioSender sends broadcasts through the Twilio messaging API.
type TwilioSender struct {
	client *twilio.RestClient
	cfg    TwilioConfig
}

// NewTwilioSender creates a Twilio sender. Credentials and at least one
// sender number are required.
func NewTwilioSender(cfg TwilioConfig) (*TwilioSender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("%w: Twilio credentials are required", ErrInvalidConfig)
	}
	if cfg.SMSFrom == "" && cfg.WhatsAppFrom == "" {
		return nil, fmt.Errorf("%w: at least one sender number is required", ErrInvalidConfig)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{client: client, cfg: cfg}, nil
}

// Send delivers one message. WhatsApp recipients get the protocol prefix
// Twilio expects.
func (s *TwilioSender) Send(ctx context.Context, channel Channel, to, message string) error {
	var from string
	switch channel {
	case ChannelWhatsApp:
		if s.cfg.WhatsAppFrom == "" {
			return fmt.Errorf("%w: WhatsApp sender is not configured", ErrInvalidConfig)
		}
		from = "whatsapp:" + s.cfg.WhatsAppFrom
		to = "whatsapp:" + to
	case ChannelSMS:
		if s.cfg.SMSFrom == "" {
			return fmt.Errorf("%w: SMS sender is not configured", ErrInvalidConfig)
		}
		from = s.cfg.SMSFrom
	default:
		return fmt.Errorf("%w: %s", ErrInvalidChannel, channel)
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(message)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	return nil
}

// DevSender logs messages instead of delivering them. Used in local
// development where Twilio credentials are absent.
type DevSender struct {
	log *slog.Logger
}

// NewDevSender creates a logging sender.
func NewDevSender(log *slog.Logger) *DevSender {
	if log == nil {
		log = slog.Default()
	}
	return &DevSender{log: log}
}

func (s *DevSender) Send(ctx context.Context, channel Channel, to, message string) error {
	s.log.InfoContext(ctx, "broadcast message (dev sender)",
		"channel", channel, "to", to, "message", message)
	return nil
}
