// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"

	"agentic-search-api/internal/application/retrieval"
)

// RetrievalAdapter 将商品向量仓储适配为检索引擎的近邻检索端口
type RetrievalAdapter struct {
	repo *Repository
}

// NewRetrievalAdapter 创建适配器
func NewRetrievalAdapter(repo *Repository) *RetrievalAdapter {
	return &RetrievalAdapter{repo: repo}
}

// FindNeighbors 实现 retrieval.NeighborSearcher
func (a *RetrievalAdapter) FindNeighbors(ctx context.Context, vector []float32, topK int) ([]retrieval.Neighbor, error) {
	found, err := a.repo.FindNeighbors(ctx, vector, topK)
	if err != nil {
		return nil, err
	}
	neighbors := make([]retrieval.Neighbor, len(found))
	for i, n := range found {
		neighbors[i] = retrieval.Neighbor{
			Product:  n.Product,
			Distance: n.Distance,
		}
	}
	return neighbors, nil
}
