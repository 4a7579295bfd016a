package datacrunch

import (
	"context"

	"github.com/emaland/spotinfer/internal/gpu"
	"github.com/emaland/spotinfer/internal/offer"
)

// Source serves DataCrunch instance types as offers.
type Source struct {
	client *Client
}

func NewSource(client *Client) *Source {
	return &Source{client: client}
}

func (s *Source) Name() string { return "datacrunch" }

func (s *Source) FetchOffers(ctx context.Context) ([]offer.Offer, error) {
	types, err := s.client.InstanceTypes(ctx)
	if err != nil {
		return nil, err
	}
	return ToOffers(types), nil
}

// ToOffers expands each instance type into an on-demand offer and, when the
// type has a spot price, a spot offer right after it.
func ToOffers(types []InstanceType) []offer.Offer {
	offers := make([]offer.Offer, 0, 2*len(types))
	for _, it := range types {
		details := offer.Details{
			Provider:       "datacrunch",
			InstanceType:   it.InstanceType,
			GPUDescription: it.GPU.Description,
			GPUCount:       it.GPU.NumberOfGPUs,
			GPUMemoryGB:    it.GPUMemory.SizeInGigabytes,
			VCPUs:          it.CPU.NumberOfCores,
			MemoryGB:       it.Memory.SizeInGigabytes,
			Currency:       it.Currency,
			OnDemandPrice:  float64(it.PricePerHour),
		}
		gpuType := ""
		if it.GPU.NumberOfGPUs > 0 {
			gpuType = gpu.ExtractType(it.GPU.Description)
		}

		offers = append(offers, offer.Offer{
			GPUType:     gpuType,
			PricingMode: offer.OnDemand,
			Price:       float64(it.PricePerHour),
			Details:     details,
		})
		if it.SpotPrice > 0 {
			offers = append(offers, offer.Offer{
				GPUType:     gpuType,
				PricingMode: offer.Spot,
				Price:       float64(it.SpotPrice),
				Details:     details,
			})
		}
	}
	return offers
}
