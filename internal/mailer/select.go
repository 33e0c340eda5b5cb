package mailer

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config selects and configures the delivery transport.
type Config struct {
	Transport string
	Timeout   time.Duration
	SMTP      SMTPConfig
	Resend    ResendConfig
}

// ResolveTransport picks the transport name: an explicit choice wins, then
// a Resend API key, then an SMTP host.
func ResolveTransport(cfg Config) (string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case TransportSMTP:
		return TransportSMTP, nil
	case TransportResend:
		return TransportResend, nil
	case "":
	default:
		return "", fmt.Errorf("unsupported mail transport %q", cfg.Transport)
	}

	if strings.TrimSpace(cfg.Resend.APIKey) != "" {
		return TransportResend, nil
	}
	if strings.TrimSpace(cfg.SMTP.Host) != "" {
		return TransportSMTP, nil
	}
	return "", fmt.Errorf("no mail transport configured: set RESEND_API_KEY or SMTP_HOST")
}

// New builds the gateway for the configured transport.
func New(cfg Config, logger *zap.Logger) (Gateway, error) {
	transport, err := ResolveTransport(cfg)
	if err != nil {
		return nil, err
	}

	switch transport {
	case TransportResend:
		resendCfg := cfg.Resend
		if resendCfg.Timeout <= 0 {
			resendCfg.Timeout = cfg.Timeout
		}
		gateway, err := NewResendGateway(resendCfg, logger)
		if err != nil {
			return nil, err
		}
		return gateway, nil
	default:
		smtpCfg := cfg.SMTP
		if smtpCfg.Timeout <= 0 {
			smtpCfg.Timeout = cfg.Timeout
		}
		gateway, err := NewSMTPGateway(smtpCfg, logger)
		if err != nil {
			return nil, err
		}
		return gateway, nil
	}
}
