package billing

import "github.com/dmitrymomot/tenantkit/pkg/config"

// StripeConfig holds the Stripe credentials a deployment supplies through
// environment variables.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
}

// NewStripeProviderFromConfig returns a Provider configured from cfg.
func NewStripeProviderFromConfig(cfg StripeConfig) *StripeProvider {
	return NewStripeProvider(cfg.SecretKey, cfg.WebhookSecret)
}

// NewStripeProviderFromEnv loads StripeConfig from the environment and
// returns a provider configured with it.
func NewStripeProviderFromEnv() (*StripeProvider, error) {
	var cfg StripeConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return NewStripeProviderFromConfig(cfg), nil
}
