package awsutil

type InstanceTypeInfo struct {
	Name        string
	VCPUs       int32
	MemoryMiB   int64
	GPUName     string
	GPUMaker    string
	GPUCount    int32
	GPUMemMiB   int32
	NetworkPerf string
}

type SpotSearchResult struct {
	InstanceTypeInfo
	AZ    string
	Price float64
}
