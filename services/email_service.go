package services

import (
	"context"
	"fmt"
	"html"
	"storeadmin_server/structs"
	"storeadmin_server/structs/tables"
	"strings"
	"sync"

	"github.com/MonkyMars/gecho"
	"github.com/resend/resend-go/v3"
)

var (
	client     *resend.Client
	clientOnce = sync.Once{}
)

// Mailer sends customer notices. Failures never undo the write that triggered them.
type Mailer interface {
	SendShipmentNotice(ctx context.Context, order *tables.Order, address *tables.Address) error
	SendReplacementNotice(ctx context.Context, ret *tables.Return, order *tables.Order, address *tables.Address) error
}

type EmailService struct {
	logger *gecho.Logger
	cfg    *structs.Config
	client *resend.Client
}

func NewEmailService(logger *gecho.Logger, cfg *structs.Config) *EmailService {
	return &EmailService{
		logger: logger,
		cfg:    cfg,
		client: getEmailClient(cfg.Email.ApiKey),
	}
}

func getEmailClient(apiKey string) *resend.Client {
	clientOnce.Do(func() {
		client = resend.NewClient(apiKey)
	})
	return client
}

func (es *EmailService) Enabled() bool {
	return es.cfg.Email.Enabled && es.cfg.Email.ApiKey != ""
}

func (es *EmailService) SendEmail(to []string, subject string, body string) error {
	if !es.Enabled() {
		es.logger.Debug("Email disabled, not sending", gecho.Field("subject", subject))
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    es.cfg.Email.From,
		To:      to,
		Html:    body,
		Subject: subject,
	}

	_, err := es.client.Emails.Send(params)
	if err != nil {
		es.logger.Error("Failed to send email", gecho.Field("error", err), gecho.Field("to", to))
		return err
	}

	return nil
}

const noticeTemplate = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #b5651d; color: white; padding: 20px; text-align: center; }
		.content { padding: 20px; background-color: #f9f9f9; }
		.details { background-color: white; padding: 15px; margin: 15px 0; border-radius: 5px; }
		ul { list-style-type: none; padding: 0; }
		li { padding: 5px 0; border-bottom: 1px solid #eee; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>%s</h1></div>
		<div class="content">
			<p>Dear %s,</p>
			<p>%s</p>
			<div class="details">%s</div>
		</div>
	</div>
</body>
</html>`

// SendShipmentNotice tells the customer their order is on its way
func (es *EmailService) SendShipmentNotice(ctx context.Context, order *tables.Order, address *tables.Address) error {
	if address == nil || address.Email == "" {
		return nil
	}

	var details strings.Builder
	fmt.Fprintf(&details, "<h3>Order <strong>%s</strong></h3>", shortID(order.ID.String()))
	if order.CourierName != nil {
		fmt.Fprintf(&details, "<p>Courier: %s</p>", html.EscapeString(*order.CourierName))
	}
	if order.TrackingNumber != nil {
		fmt.Fprintf(&details, "<p>Tracking number: %s</p>", html.EscapeString(*order.TrackingNumber))
	}
	if order.TrackingURL != nil {
		u := html.EscapeString(*order.TrackingURL)
		fmt.Fprintf(&details, `<p><a href="%s">Track your parcel</a></p>`, u)
	}

	body := fmt.Sprintf(noticeTemplate,
		"Your order has shipped",
		html.EscapeString(address.Name),
		"Good news, your order is on its way.",
		details.String(),
	)
	subject := fmt.Sprintf("Order %s has shipped", shortID(order.ID.String()))
	return es.SendEmail([]string{address.Email}, subject, body)
}

// SendReplacementNotice tells the customer a replacement order was created for their return
func (es *EmailService) SendReplacementNotice(ctx context.Context, ret *tables.Return, order *tables.Order, address *tables.Address) error {
	if address == nil || address.Email == "" {
		return nil
	}

	var details strings.Builder
	fmt.Fprintf(&details, "<h3>Return <strong>%s</strong></h3><ul>", html.EscapeString(ret.DisplayCode()))
	for _, item := range order.Items {
		name := "Product"
		if item.NameSnapshot != nil {
			name = *item.NameSnapshot
		}
		fmt.Fprintf(&details, "<li>%dx %s</li>", item.Qty, html.EscapeString(name))
	}
	details.WriteString("</ul>")

	body := fmt.Sprintf(noticeTemplate,
		"Your replacement is being prepared",
		html.EscapeString(address.Name),
		"We have received your return and created a replacement order.",
		details.String(),
	)
	subject := fmt.Sprintf("Replacement for return %s", ret.DisplayCode())
	return es.SendEmail([]string{address.Email}, subject, body)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}
