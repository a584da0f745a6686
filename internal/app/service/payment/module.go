package payment

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sokopay/paygate/internal/platform/daraja"
	"github.com/sokopay/paygate/pkg/config"
)

// NewDarajaComponents wires the gateway client with its explicitly injected
// breaker; the breaker is exported separately so the admin surface can read
// its status.
func NewDarajaComponents(cfg *config.Config, log *zap.SugaredLogger) (*daraja.Client, *daraja.CircuitBreaker) {
	breaker := daraja.NewCircuitBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.ResetTimeout)
	retry := daraja.NewRetryPolicy(cfg.Daraja.RetryMaxAttempts, cfg.Daraja.RetryBaseDelay)
	client := daraja.NewClient(daraja.ClientOptions{
		BaseURL:        cfg.Daraja.BaseURL,
		ShortCode:      cfg.Daraja.ShortCode,
		Passkey:        cfg.Daraja.Passkey,
		ConsumerKey:    cfg.Daraja.ConsumerKey,
		ConsumerSecret: cfg.Daraja.ConsumerSecret,
		CallbackURL:    cfg.Daraja.CallbackURL,
		HTTPTimeout:    cfg.Daraja.HTTPTimeout,
	}, breaker, retry, log)
	return client, breaker
}

var Module = fx.Options(
	fx.Provide(NewDarajaComponents),
	fx.Provide(func(c *daraja.Client) Gateway { return c }),
	fx.Provide(NewService),
)
