package awsutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// FetchGPUInstanceTypes lists current-generation, spot-capable instance types
// that carry at least one GPU.
func FetchGPUInstanceTypes(ctx context.Context, client *ec2.Client) ([]InstanceTypeInfo, error) {
	var results []InstanceTypeInfo

	input := &ec2.DescribeInstanceTypesInput{
		Filters: []types.Filter{
			{Name: aws.String("supported-usage-class"), Values: []string{"spot"}},
			{Name: aws.String("current-generation"), Values: []string{"true"}},
		},
	}

	paginator := ec2.NewDescribeInstanceTypesPaginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing instance types: %w", err)
		}
		for _, it := range page.InstanceTypes {
			info := toInfo(it)
			if info.GPUCount == 0 {
				continue
			}
			results = append(results, info)
		}
	}
	return results, nil
}

func toInfo(it types.InstanceTypeInfo) InstanceTypeInfo {
	info := InstanceTypeInfo{Name: string(it.InstanceType)}
	if it.VCpuInfo != nil {
		info.VCPUs = aws.ToInt32(it.VCpuInfo.DefaultVCpus)
	}
	if it.MemoryInfo != nil {
		info.MemoryMiB = aws.ToInt64(it.MemoryInfo.SizeInMiB)
	}
	if it.NetworkInfo != nil {
		info.NetworkPerf = aws.ToString(it.NetworkInfo.NetworkPerformance)
	}
	if it.GpuInfo != nil && len(it.GpuInfo.Gpus) > 0 {
		g := it.GpuInfo.Gpus[0]
		info.GPUName = aws.ToString(g.Name)
		info.GPUMaker = aws.ToString(g.Manufacturer)
		for _, dev := range it.GpuInfo.Gpus {
			info.GPUCount += aws.ToInt32(dev.Count)
		}
		info.GPUMemMiB = aws.ToInt32(it.GpuInfo.TotalGpuMemoryInMiB)
	}
	return info
}

// FetchSpotPrices returns the latest Linux spot price per (instance type, AZ)
// seen in the last hour, cheapest first.
func FetchSpotPrices(ctx context.Context, client *ec2.Client, instanceTypes []InstanceTypeInfo, azFilter string) ([]SpotSearchResult, error) {
	infoMap := map[string]InstanceTypeInfo{}
	var typeNames []types.InstanceType
	for _, it := range instanceTypes {
		infoMap[it.Name] = it
		typeNames = append(typeNames, types.InstanceType(it.Name))
	}

	type priceKey struct {
		itype string
		az    string
	}
	latest := map[priceKey]types.SpotPrice{}
	startTime := time.Now().Add(-1 * time.Hour)

	// the API accepts roughly 100 instance types per call
	batchSize := 100
	for i := 0; i < len(typeNames); i += batchSize {
		end := min(i+batchSize, len(typeNames))
		input := &ec2.DescribeSpotPriceHistoryInput{
			InstanceTypes:       typeNames[i:end],
			StartTime:           &startTime,
			ProductDescriptions: []string{"Linux/UNIX"},
		}
		if azFilter != "" {
			input.AvailabilityZone = aws.String(azFilter)
		}

		paginator := ec2.NewDescribeSpotPriceHistoryPaginator(client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("describing spot price history: %w", err)
			}
			for _, sp := range page.SpotPriceHistory {
				az := aws.ToString(sp.AvailabilityZone)
				if azFilter != "" && az != azFilter {
					continue
				}
				k := priceKey{string(sp.InstanceType), az}
				existing, ok := latest[k]
				if !ok || aws.ToTime(sp.Timestamp).After(aws.ToTime(existing.Timestamp)) {
					latest[k] = sp
				}
			}
		}
	}

	var results []SpotSearchResult
	for k, sp := range latest {
		price, err := strconv.ParseFloat(aws.ToString(sp.SpotPrice), 64)
		if err != nil {
			continue
		}
		results = append(results, SpotSearchResult{
			InstanceTypeInfo: infoMap[k.itype],
			AZ:               k.az,
			Price:            price,
		})
	}
	// map iteration order is random; fix it so offers come out deterministic
	sort.Slice(results, func(i, j int) bool {
		if results[i].Price != results[j].Price {
			return results[i].Price < results[j].Price
		}
		if results[i].Name != results[j].Name {
			return results[i].Name < results[j].Name
		}
		return results[i].AZ < results[j].AZ
	})
	return results, nil
}
