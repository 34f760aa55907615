package billing

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan is a named, priced offering a subscription is created against.
// Trial is a first-class attribute rather than being inferred from
// sentinel durations or a zero price.
type Plan struct {
	ID     string        `yaml:"id"`
	Name   string        `yaml:"name"`
	Price  Money         `yaml:"price"`
	Period BillingPeriod `yaml:"period"`
	Region string        `yaml:"region,omitempty"`
	Trial  bool          `yaml:"trial,omitempty"`
}

// PlanSource loads plan definitions into the billing service. Sources
// are read-only; plan CRUD lives outside this core.
type PlanSource interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// StaticSource serves a fixed set of plans from memory. Useful for
// tests and for services that compile their catalog in.
type StaticSource struct {
	plans map[string]Plan
}

// NewStaticSource creates a PlanSource from the given plans, keyed by ID.
func NewStaticSource(plans ...Plan) *StaticSource {
	m := make(map[string]Plan, len(plans))
	for _, p := range plans {
		m[p.ID] = p
	}
	return &StaticSource{plans: m}
}

func (s *StaticSource) Load(context.Context) (map[string]Plan, error) {
	out := make(map[string]Plan, len(s.plans))
	for id, p := range s.plans {
		out[id] = p
	}
	return out, nil
}

// YAMLSource reads the plan catalog from a YAML file containing a list
// of plans.
type YAMLSource struct {
	path string
}

func NewYAMLSource(path string) *YAMLSource {
	return &YAMLSource{path: path}
}

func (s *YAMLSource) Load(context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var list []Plan
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	plans := make(map[string]Plan, len(list))
	for _, p := range list {
		if _, dup := plans[p.ID]; dup {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("duplicate plan ID %q", p.ID))
		}
		plans[p.ID] = p
	}
	return plans, nil
}

// validatePlans catches catalog misconfiguration at service construction
// instead of at charge time.
func validatePlans(plans map[string]Plan) error {
	for id, plan := range plans {
		if plan.ID != id {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", id, plan.ID))
		}
		if !plan.Period.Valid() {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has invalid billing period", id))
		}
		if plan.Price.Amount < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative price: %d", id, plan.Price.Amount))
		}
		if !plan.Trial && plan.Price.Currency == "" && plan.Price.Amount > 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has a price without a currency", id))
		}
	}
	return nil
}
