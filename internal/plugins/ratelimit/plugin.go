// Package ratelimit provides a middleware plugin that rate-limits callers
// with one token bucket per key.
//
// Defaults come from the shared configuration
// (settings.ratelimit.requests_per_second and settings.ratelimit.burst) and
// can be overridden per module through descriptor options.
package ratelimit

import (
	"fmt"
	"strconv"

	internalrl "github.com/ferro-labs/plugdir/internal/ratelimit"
	"github.com/ferro-labs/plugdir/plugin"
)

// FactoryName is the catalog name of the plugin.
const FactoryName = "rate-limit"

// Configuration keys read from the shared context.
const (
	RateKey  = "settings.ratelimit.requests_per_second"
	BurstKey = "settings.ratelimit.burst"
)

const defaultRate = 100.0

func init() {
	plugin.RegisterFactory(FactoryName, New)
}

// Plugin enforces a token-bucket limit per key.
type Plugin struct {
	name  string
	rate  float64
	burst float64
	store *internalrl.Store
}

// New creates the plugin with defaults taken from vars.
func New(vars *plugin.Vars) (plugin.Plugin, error) {
	p := &Plugin{name: FactoryName, rate: defaultRate}
	if vars != nil && vars.Config != nil {
		if v, ok := vars.Config.Lookup(RateKey); ok {
			rate, err := strconv.ParseFloat(v, 64)
			if err != nil || rate <= 0 {
				return nil, fmt.Errorf("rate-limit: %s must be a positive number, got %q", RateKey, v)
			}
			p.rate = rate
		}
		if v, ok := vars.Config.Lookup(BurstKey); ok {
			burst, err := strconv.ParseFloat(v, 64)
			if err != nil || burst < 0 {
				return nil, fmt.Errorf("rate-limit: %s must be a non-negative number, got %q", BurstKey, v)
			}
			p.burst = burst
		}
	}
	p.store = internalrl.NewStore(p.rate, p.burst)
	return p, nil
}

// Info returns the plugin description.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        p.name,
		Description: fmt.Sprintf("token bucket limiter (%g/s, burst %g)", p.rate, p.effectiveBurst()),
		Version:     "1.0.0",
	}
}

// Init reads the options:
//   - name (string)
//   - requests_per_second (number, > 0)
//   - burst (number, >= 0; 0 means equal to the rate)
func (p *Plugin) Init(config map[string]interface{}) error {
	if v, ok := config["name"]; ok {
		name, ok := v.(string)
		if !ok || name == "" {
			return fmt.Errorf("rate-limit: name must be a non-empty string")
		}
		p.name = name
	}
	if v, ok := config["requests_per_second"]; ok {
		rate, err := number(v)
		if err != nil || rate <= 0 {
			return fmt.Errorf("rate-limit: requests_per_second must be a positive number")
		}
		p.rate = rate
	}
	if v, ok := config["burst"]; ok {
		burst, err := number(v)
		if err != nil || burst < 0 {
			return fmt.Errorf("rate-limit: burst must be a non-negative number")
		}
		p.burst = burst
	}
	p.store = internalrl.NewStore(p.rate, p.burst)
	return nil
}

// Allow reports whether another event for key fits in its bucket.
func (p *Plugin) Allow(key string) bool {
	return p.store.Allow(key)
}

func (p *Plugin) effectiveBurst() float64 {
	if p.burst <= 0 {
		return p.rate
	}
	return p.burst
}

func number(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
