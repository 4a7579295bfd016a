package offer

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfiguration is returned for malformed selection input.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// PricingMode is how an offer is billed. The zero value is not a valid mode.
type PricingMode int

const (
	Spot PricingMode = iota + 1
	OnDemand
)

func (m PricingMode) String() string {
	switch m {
	case Spot:
		return "spot"
	case OnDemand:
		return "on-demand"
	default:
		return fmt.Sprintf("PricingMode(%d)", int(m))
	}
}

func (m PricingMode) MarshalText() ([]byte, error) {
	if m != Spot && m != OnDemand {
		return nil, fmt.Errorf("unknown pricing mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *PricingMode) UnmarshalText(b []byte) error {
	parsed, err := ParsePricingMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParsePricingMode accepts "spot" and the common spellings of on-demand.
func ParsePricingMode(s string) (PricingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spot":
		return Spot, nil
	case "on-demand", "ondemand", "on_demand":
		return OnDemand, nil
	}
	return 0, fmt.Errorf("%w: unknown pricing mode %q", ErrInvalidConfiguration, s)
}

// Offer is a snapshot of one purchasable GPU instance configuration.
type Offer struct {
	GPUType     string      `json:"gpu_type" yaml:"gpu_type"`
	PricingMode PricingMode `json:"pricing_mode" yaml:"pricing_mode"`
	Price       float64     `json:"price" yaml:"price"`
	Details     Details     `json:"details" yaml:"details"`
}

// Details is provider metadata carried through selection untouched.
type Details struct {
	Provider       string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	InstanceType   string  `json:"instance_type,omitempty" yaml:"instance_type,omitempty"`
	GPUDescription string  `json:"gpu_description,omitempty" yaml:"gpu_description,omitempty"`
	GPUCount       int     `json:"gpu_count" yaml:"gpu_count"`
	GPUMemoryGB    float64 `json:"gpu_memory_gb,omitempty" yaml:"gpu_memory_gb,omitempty"`
	VCPUs          int     `json:"vcpus,omitempty" yaml:"vcpus,omitempty"`
	MemoryGB       float64 `json:"memory_gb,omitempty" yaml:"memory_gb,omitempty"`
	Location       string  `json:"location,omitempty" yaml:"location,omitempty"`
	Network        string  `json:"network,omitempty" yaml:"network,omitempty"`
	Currency       string  `json:"currency,omitempty" yaml:"currency,omitempty"`
	// OnDemandPrice is the on-demand price of the same instance type, if known.
	OnDemandPrice float64 `json:"on_demand_price,omitempty" yaml:"on_demand_price,omitempty"`
}

// Savings returns the spot discount relative to the on-demand price in percent.
// ok is false when the offer is not spot or the on-demand price is unknown.
func (o Offer) Savings() (pct float64, ok bool) {
	if o.PricingMode != Spot || o.Details.OnDemandPrice <= 0 {
		return 0, false
	}
	return (o.Details.OnDemandPrice - o.Price) / o.Details.OnDemandPrice * 100, true
}

// SelectionConfig describes which offers a caller wants.
type SelectionConfig struct {
	// GPUType matches Offer.GPUType case-insensitively. Empty means any.
	GPUType      string
	SpotOnly     bool
	CheapestOnly bool
	// Limit bounds the result length. 0 means no limit.
	Limit int
	// MaxPrice drops offers priced above it. 0 means no bound.
	MaxPrice float64
}

func (c SelectionConfig) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidConfiguration, c.Limit)
	}
	if c.MaxPrice < 0 || math.IsNaN(c.MaxPrice) {
		return fmt.Errorf("%w: max price must be a non-negative number, got %v", ErrInvalidConfiguration, c.MaxPrice)
	}
	return nil
}
