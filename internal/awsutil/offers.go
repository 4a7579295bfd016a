package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/sirupsen/logrus"

	"github.com/emaland/spotinfer/internal/gpu"
	"github.com/emaland/spotinfer/internal/offer"
)

// Source serves EC2 GPU spot prices as offers. EC2 on-demand prices live in
// the separate Pricing API, so every offer here is spot.
type Source struct {
	client *ec2.Client
	az     string
	log    logrus.FieldLogger
}

func NewSource(client *ec2.Client, az string, log logrus.FieldLogger) *Source {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Source{client: client, az: az, log: log}
}

func (s *Source) Name() string { return "aws" }

func (s *Source) FetchOffers(ctx context.Context) ([]offer.Offer, error) {
	types, err := FetchGPUInstanceTypes(ctx, s.client)
	if err != nil {
		return nil, err
	}
	s.log.WithField("count", len(types)).Debug("fetched GPU instance types")
	if len(types) == 0 {
		return []offer.Offer{}, nil
	}
	prices, err := FetchSpotPrices(ctx, s.client, types, s.az)
	if err != nil {
		return nil, err
	}
	s.log.WithField("count", len(prices)).Debug("fetched spot prices")
	return ToOffers(prices), nil
}

func ToOffers(results []SpotSearchResult) []offer.Offer {
	offers := make([]offer.Offer, 0, len(results))
	for _, r := range results {
		offers = append(offers, offer.Offer{
			GPUType:     gpu.Normalize(r.GPUName),
			PricingMode: offer.Spot,
			Price:       r.Price,
			Details: offer.Details{
				Provider:       "aws",
				InstanceType:   r.Name,
				GPUDescription: describeGPU(r.InstanceTypeInfo),
				GPUCount:       int(r.GPUCount),
				GPUMemoryGB:    float64(r.GPUMemMiB) / 1024,
				VCPUs:          int(r.VCPUs),
				MemoryGB:       float64(r.MemoryMiB) / 1024,
				Location:       r.AZ,
				Network:        r.NetworkPerf,
				Currency:       "usd",
			},
		})
	}
	return offers
}

func describeGPU(info InstanceTypeInfo) string {
	if info.GPUCount == 0 {
		return ""
	}
	name := info.GPUName
	if info.GPUMaker != "" {
		name = info.GPUMaker + " " + name
	}
	return fmt.Sprintf("%dx %s", info.GPUCount, name)
}
