package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const DefaultResendBaseURL = "https://api.resend.com"

type ResendConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type resendAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
	ContentID   string `json:"content_id,omitempty"`
}

type resendRequest struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html,omitempty"`
	Text        string             `json:"text,omitempty"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendErrorBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ResendGateway posts messages to the Resend HTTP API.
type ResendGateway struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewResendGateway(cfg ResendConfig, logger *zap.Logger) (*ResendGateway, error) {
	client := resty.New()
	client.SetRetryCount(0)

	return NewResendGatewayWithClient(cfg, client, logger)
}

func NewResendGatewayWithClient(cfg ResendConfig, client *resty.Client, logger *zap.Logger) (*ResendGateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultResendBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid resend base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client.SetRetryCount(0)

	return &ResendGateway{
		client:   client,
		endpoint: baseURL + "/emails",
		apiKey:   apiKey,
		timeout:  cfg.Timeout,
		logger:   logger,
	}, nil
}

func (g *ResendGateway) Transport() string { return TransportResend }

func (g *ResendGateway) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("resend gateway is not initialized")
	}

	reqBody := resendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	for _, attachment := range NormalizeAttachments(g.logger, msg.Attachments) {
		reqBody.Attachments = append(reqBody.Attachments, resendAttachment{
			Filename:    attachment.Filename,
			Content:     base64.StdEncoding.EncodeToString(attachment.Content),
			ContentType: attachment.ContentType,
			ContentID:   attachment.ContentID,
		})
	}

	sendCtx, cancel := withSendTimeout(ctx, g.timeout)
	defer cancel()

	var result resendResponse
	var errBody resendErrorBody
	response, err := g.client.R().
		SetContext(sendCtx).
		SetAuthToken(g.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(&result).
		SetError(&errBody).
		Post(g.endpoint)
	if err != nil {
		kind := KindUnknown
		if isTimeout(err) || errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return nil, &DeliveryError{
			Kind:      kind,
			Transport: TransportResend,
			Message:   "provider request failed",
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Receipt{
			Transport:  TransportResend,
			MessageID:  result.ID,
			StatusCode: statusCode,
		}, nil
	}

	message := strings.TrimSpace(errBody.Message)
	if message == "" {
		message = strings.TrimSpace(response.String())
	}
	return nil, &DeliveryError{
		Kind:       httpStatusKind(statusCode),
		Transport:  TransportResend,
		StatusCode: statusCode,
		Message:    message,
	}
}
