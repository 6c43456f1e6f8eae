package payment

import (
	"fmt"

	"resort-booking/pkg/utils"

	"go.uber.org/zap"
)

// New picks the gateway named by PAYMENT_PROVIDER.
func New(cfg *utils.Config, log *zap.Logger) (Gateway, error) {
	switch cfg.Payment.Provider {
	case "razorpay":
		if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
			return nil, fmt.Errorf("razorpay: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
		}
		if cfg.Razorpay.WebhookSecret == "" {
			log.Warn("RAZORPAY_WEBHOOK_SECRET not set, webhooks will be rejected")
		}
		return NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret, log), nil
	case "sandbox":
		secret := cfg.Razorpay.KeySecret
		if secret == "" {
			secret = "sandbox-secret"
		}
		log.Warn("Using sandbox payment provider")
		return NewSandbox(secret), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Payment.Provider)
	}
}
