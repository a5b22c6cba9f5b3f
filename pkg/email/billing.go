package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/dmitrymomot/tenantkit/pkg/billing"
)

var billingEmailTemplate = template.Must(template.New("billing").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 0; background-color: #f5f5f5;">
<table role="presentation" style="width: 100%; border: 0;">
<tr><td style="padding: 40px 0; text-align: center;">
<table role="presentation" style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; overflow: hidden;">
<tr><td style="padding: 32px 40px; text-align: center;">
<h1 style="margin: 0 0 16px; font-size: 24px; color: #1a1a1a;">{{.Title}}</h1>
<p style="margin: 0 0 24px; color: #666; font-size: 15px; line-height: 1.5;">{{.Body}}</p>
<p style="margin: 24px 0 0; color: #999; font-size: 13px; line-height: 1.5;">
You can manage your subscription anytime from the billing portal.
</p>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`))

type billingEmailData struct {
	Title string
	Body  string
}

// BillingMailer sends subscription lifecycle emails through an EmailSender.
// It satisfies the billing service's notifier contract.
type BillingMailer struct {
	sender EmailSender
}

// NewBillingMailer creates a lifecycle mailer on top of any EmailSender.
func NewBillingMailer(sender EmailSender) *BillingMailer {
	if sender == nil {
		panic("email: sender is required")
	}
	return &BillingMailer{sender: sender}
}

func (m *BillingMailer) SendActivation(ctx context.Context, n billing.SubscriptionNotice) error {
	return m.send(ctx, n.Email, "Your subscription is active", billingEmailData{
		Title: "Subscription activated",
		Body:  fmt.Sprintf("Your %s plan is now active. Thanks for subscribing!", n.PlanName),
	}, "subscription-activated")
}

func (m *BillingMailer) SendCancellation(ctx context.Context, n billing.SubscriptionNotice) error {
	return m.send(ctx, n.Email, "Your subscription has been canceled", billingEmailData{
		Title: "Subscription canceled",
		Body:  fmt.Sprintf("Your %s plan has been canceled. We're sorry to see you go.", n.PlanName),
	}, "subscription-canceled")
}

func (m *BillingMailer) SendPaymentFailed(ctx context.Context, n billing.SubscriptionNotice) error {
	return m.send(ctx, n.Email, "Payment failed for your subscription", billingEmailData{
		Title: "Payment failed",
		Body:  fmt.Sprintf("We could not collect payment for your %s plan. Please update your payment method to keep your subscription active.", n.PlanName),
	}, "payment-failed")
}

func (m *BillingMailer) send(ctx context.Context, to, subject string, data billingEmailData, tag string) error {
	var buf bytes.Buffer
	if err := billingEmailTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render billing email: %w", err)
	}
	return m.sender.SendEmail(ctx, SendEmailParams{
		SendTo:   to,
		Subject:  subject,
		BodyHTML: buf.String(),
		Tag:      tag,
	})
}
