package offer

import (
	"fmt"
	"sort"
	"strings"
)

// Select filters offers by cfg. Stages run in order: GPU type, pricing mode,
// max price, cheapest reduction, limit. The input slice is never modified and
// the result keeps input order. No matches is an empty result, not an error.
func Select(offers []Offer, cfg SelectionConfig) ([]Offer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out := make([]Offer, 0, len(offers))
	for _, o := range offers {
		if cfg.GPUType != "" && !strings.EqualFold(o.GPUType, cfg.GPUType) {
			continue
		}
		if cfg.SpotOnly && o.PricingMode != Spot {
			continue
		}
		if cfg.MaxPrice > 0 && o.Price > cfg.MaxPrice {
			continue
		}
		out = append(out, o)
	}

	if cfg.CheapestOnly {
		if len(out) == 0 {
			return out, nil
		}
		best := 0
		for i := 1; i < len(out); i++ {
			// strict less-than keeps the earliest on ties
			if out[i].Price < out[best].Price {
				best = i
			}
		}
		return []Offer{out[best]}, nil
	}

	if cfg.Limit > 0 && len(out) > cfg.Limit {
		out = out[:cfg.Limit]
	}
	return out, nil
}

// DistinctGPUTypes lists the GPU types present in offers in first-seen order.
// Duplicates are detected case-insensitively; the first spelling wins.
func DistinctGPUTypes(offers []Offer) []string {
	seen := map[string]bool{}
	var types []string
	for _, o := range offers {
		if o.GPUType == "" {
			continue
		}
		key := strings.ToLower(o.GPUType)
		if seen[key] {
			continue
		}
		seen[key] = true
		types = append(types, o.GPUType)
	}
	return types
}

// SortedGPUTypes is DistinctGPUTypes ordered alphabetically, ignoring case.
func SortedGPUTypes(offers []Offer) []string {
	types := DistinctGPUTypes(offers)
	sort.SliceStable(types, func(i, j int) bool {
		return strings.ToLower(types[i]) < strings.ToLower(types[j])
	})
	if types == nil {
		types = []string{}
	}
	return types
}

// SortKey names an ordering for Rank.
type SortKey string

const (
	SortNone  SortKey = "none"
	SortPrice SortKey = "price"
	SortGPU   SortKey = "gpu"
)

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(s)); k {
	case "":
		return SortNone, nil
	case SortNone, SortPrice, SortGPU:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown sort key %q (want price, gpu or none)", ErrInvalidConfiguration, s)
}

// Rank returns a stably sorted copy of offers.
func Rank(offers []Offer, key SortKey) ([]Offer, error) {
	out := make([]Offer, len(offers))
	copy(out, offers)

	switch key {
	case SortNone, "":
	case SortPrice:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortGPU:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := strings.ToLower(out[i].GPUType), strings.ToLower(out[j].GPUType)
			if a != b {
				return a < b
			}
			return out[i].Price < out[j].Price
		})
	default:
		return nil, fmt.Errorf("%w: unknown sort key %q", ErrInvalidConfiguration, key)
	}
	return out, nil
}
