// Package retrieval 提供候选商品检索引擎
package retrieval

import (
	"context"

	"agentic-search-api/internal/domain/model"
)

// Neighbor 近邻结果：商品与向量距离
type Neighbor struct {
	Product  model.Product
	Distance float64
}

// NeighborSearcher 近邻检索能力抽象
// 由向量数据库适配器实现；检索引擎只依赖此接口。
type NeighborSearcher interface {
	FindNeighbors(ctx context.Context, vector []float32, topK int) ([]Neighbor, error)
}

// Embedder 向量化能力抽象
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
