// Package spotinfer finds and selects GPU instance offers from cloud
// providers.
//
//	src, err := spotinfer.NewSource(ctx, "datacrunch", spotinfer.SourceOptions{})
//	offers, err := spotinfer.ListOffers(ctx, src, spotinfer.WithGPUType("H100"), spotinfer.SpotOnly())
package spotinfer

import (
	"context"
	"fmt"

	"github.com/emaland/spotinfer/internal/offer"
	"github.com/emaland/spotinfer/internal/provider"
)

type (
	Offer           = offer.Offer
	Details         = offer.Details
	PricingMode     = offer.PricingMode
	SelectionConfig = offer.SelectionConfig
	SortKey         = offer.SortKey
	Source          = provider.Source
	SourceOptions   = provider.Options
)

const (
	Spot     = offer.Spot
	OnDemand = offer.OnDemand

	SortNone  = offer.SortNone
	SortPrice = offer.SortPrice
	SortGPU   = offer.SortGPU
)

var (
	ErrInvalidConfiguration = offer.ErrInvalidConfiguration
	ErrMissingCredentials   = provider.ErrMissingCredentials
)

// NewSource builds a provider source by name ("datacrunch" or "aws").
func NewSource(ctx context.Context, name string, opts SourceOptions) (Source, error) {
	return provider.New(ctx, name, opts)
}

// Select filters offers according to cfg. See offer.Select.
func Select(offers []Offer, cfg SelectionConfig) ([]Offer, error) {
	return offer.Select(offers, cfg)
}

func DistinctGPUTypes(offers []Offer) []string {
	return offer.DistinctGPUTypes(offers)
}

type listOptions struct {
	cfg  SelectionConfig
	sort SortKey
}

type Option func(*listOptions)

func WithGPUType(gpuType string) Option {
	return func(o *listOptions) { o.cfg.GPUType = gpuType }
}

func SpotOnly() Option {
	return func(o *listOptions) { o.cfg.SpotOnly = true }
}

func CheapestOnly() Option {
	return func(o *listOptions) { o.cfg.CheapestOnly = true }
}

func WithLimit(n int) Option {
	return func(o *listOptions) { o.cfg.Limit = n }
}

func WithMaxPrice(p float64) Option {
	return func(o *listOptions) { o.cfg.MaxPrice = p }
}

func SortBy(key SortKey) Option {
	return func(o *listOptions) { o.sort = key }
}

// ListOffers fetches offers from src, orders them (by price unless SortBy
// says otherwise) and applies the selection options. The options are
// validated before src is contacted.
func ListOffers(ctx context.Context, src Source, opts ...Option) ([]Offer, error) {
	lo := listOptions{sort: SortPrice}
	for _, opt := range opts {
		opt(&lo)
	}
	if err := lo.cfg.Validate(); err != nil {
		return nil, err
	}
	key, err := offer.ParseSortKey(string(lo.sort))
	if err != nil {
		return nil, err
	}
	lo.sort = key

	offers, err := src.FetchOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching offers from %s: %w", src.Name(), err)
	}
	ranked, err := offer.Rank(offers, lo.sort)
	if err != nil {
		return nil, err
	}
	return offer.Select(ranked, lo.cfg)
}

// GPUTypes returns the distinct GPU types src currently offers, sorted.
func GPUTypes(ctx context.Context, src Source) ([]string, error) {
	offers, err := src.FetchOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching offers from %s: %w", src.Name(), err)
	}
	return offer.SortedGPUTypes(offers), nil
}
