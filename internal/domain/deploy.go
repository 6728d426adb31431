package domain

import "math"

const (
	deployOverhead = 1.20
	h200VRAMGiB    = 140
	l40sVRAMGiB    = 48
)

// dtypeBytes maps safetensors dtype names to bytes per parameter. Unknown
// dtypes fall back to 2 bytes (half precision).
var dtypeBytes = map[string]float64{
	"F64": 8, "I64": 8,
	"F32": 4, "I32": 4,
	"F16": 2, "BF16": 2, "I16": 2,
	"F8_E4M3": 1, "F8_E5M2": 1, "I8": 1, "U8": 1,
	"BOOL": 0.125,
}

// DeployEstimate is a rough VRAM sizing for serving a model: weight size
// plus a fixed overhead factor for KV cache and runtime buffers.
type DeployEstimate struct {
	TotalParams int64
	WeightGiB   float64
	TotalGiB    float64
	Dtype       string
	H200Count   int
	FitsL40S    bool
}

// EstimateDeploy computes GPU requirements from safetensors parameter
// counts. Returns false when the model exposes no parameter metadata.
func EstimateDeploy(m Model) (DeployEstimate, bool) {
	if len(m.Safetensors) == 0 {
		return DeployEstimate{}, false
	}

	var (
		total       int64
		weightBytes float64
		mainDtype   string
		maxCount    int64
	)
	for dtype, count := range m.Safetensors {
		bytes, ok := dtypeBytes[dtype]
		if !ok {
			bytes = 2
		}
		weightBytes += float64(count) * bytes
		total += count
		if count > maxCount {
			maxCount = count
			mainDtype = dtype
		}
	}

	if total == 0 {
		return DeployEstimate{}, false
	}

	weightGiB := weightBytes / (1 << 30)
	totalGiB := weightGiB * deployOverhead

	return DeployEstimate{
		TotalParams: total,
		WeightGiB:   weightGiB,
		TotalGiB:    totalGiB,
		Dtype:       mainDtype,
		H200Count:   int(math.Ceil(totalGiB / h200VRAMGiB)),
		FitsL40S:    totalGiB <= l40sVRAMGiB,
	}, true
}
