package embedding

import (
	"hash/fnv"
	"math"
)

// FallbackVector 生成确定性降级向量
// Embedding 服务不可用时保证可用性：对同一文本恒定，
// 但不携带语义，仅用于故障期间维持检索链路。
func FallbackVector(text string, dimension int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := float64(h.Sum32())

	vec := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		vec[i] = float32(math.Sin(seed+float64(i)*0.1) * 0.5)
	}
	return vec
}
