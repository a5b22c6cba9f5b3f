// Package billing links application users within tenants to payment
// provider customers and keeps a local mirror of their subscriptions in
// sync through signature-verified webhooks.
//
// The Service provisions one provider customer per (user, tenant) pair,
// starts provider-hosted checkout and portal sessions, and applies
// subscription webhook events idempotently. Local subscription state is a
// cache of the provider's truth: the provider always wins on conflict.
//
// Usage:
//
//	provider := billing.NewStripeProvider(apiKey, webhookSecret)
//	prices := billing.StaticPrices{"pro": "price_123"}
//	svc := billing.NewService(customerStore, subStore, provider, prices,
//		billing.WithNotifier(mailer),
//	)
//
//	mux.Handle("/webhooks/billing", billing.NewWebhookHandler(svc, logger))
package billing
