package billing

import (
	"time"

	"github.com/kaizenhr/billing/pkg/config"
)

// Config holds everything the billing module needs from the
// environment. The postgres and Paystack sections are separate structs
// loaded from the same process environment.
type Config struct {
	// CallbackURL is where the hosted payment page sends the customer
	// after checkout.
	CallbackURL string `env:"BILLING_CALLBACK_URL"`

	// PlansFile points at a YAML plan catalog. When empty the catalog
	// is read from the pricing_plans table instead.
	PlansFile string `env:"BILLING_PLANS_FILE"`

	// RedisURL enables the plan catalog cache when set.
	RedisURL     string        `env:"BILLING_REDIS_URL"`
	PlanCacheKey string        `env:"BILLING_PLAN_CACHE_KEY" envDefault:"billing:plans"`
	PlanCacheTTL time.Duration `env:"BILLING_PLAN_CACHE_TTL" envDefault:"5m"`
}

// LoadConfig reads Config from the environment, loading .env first
// when present.
func LoadConfig() (Config, error) {
	return config.Load[Config]()
}
