// Package notify sends WhatsApp confirmations via Twilio. Missing
// credentials turn every send into a no-op so local environments never
// reach the network.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Config holds Twilio credentials. Phone numbers must be E.164; From is the
// Twilio WhatsApp number (e.g. whatsapp:+14155238886).
type Config struct {
	AccountSid string
	AuthToken  string
	From       string
}

type Client struct {
	cfg  Config
	http *resty.Client
}

func NewClient(cfg Config) *Client {
	c := resty.New().
		SetBaseURL("https://api.twilio.com/2010-04-01").
		SetTimeout(10 * time.Second).
		SetRetryCount(2)
	if cfg.AccountSid != "" {
		c.SetBasicAuth(cfg.AccountSid, cfg.AuthToken)
	}
	return &Client{cfg: cfg, http: c}
}

func (c *Client) enabled() bool {
	return c.cfg.AccountSid != "" && c.cfg.AuthToken != "" && c.cfg.From != ""
}

// SendConfirmation tells the patient a new appointment exists.
func (c *Client) SendConfirmation(ctx context.Context, phone, patientName string, start time.Time) error {
	body := fmt.Sprintf("Olá %s! Sua consulta foi agendada para %s às %s. Responda SIM para confirmar.",
		patientName, start.Format("02/01/2006"), start.Format("15:04"))
	return c.send(ctx, phone, body)
}

func (c *Client) send(ctx context.Context, to, body string) error {
	if !c.enabled() {
		return nil
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("whatsapp: destinatário vazio")
	}
	if !strings.HasPrefix(to, "whatsapp:+") {
		to = "whatsapp:+" + strings.TrimLeft(to, "+")
	}
	from := c.cfg.From
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": from,
			"Body": body,
		}).
		Post(fmt.Sprintf("/Accounts/%s/Messages.json", c.cfg.AccountSid))
	if err != nil {
		return err
	}
	if resp.IsError() {
		log.Warn().Int("status", resp.StatusCode()).Msg("whatsapp send failed")
		return fmt.Errorf("whatsapp: twilio returned %d", resp.StatusCode())
	}
	return nil
}
