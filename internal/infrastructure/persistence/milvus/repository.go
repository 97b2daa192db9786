// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"agentic-search-api/internal/domain/model"
	"agentic-search-api/pkg/metrics"
)

// Neighbor 近邻检索结果：商品元数据与向量距离
type Neighbor struct {
	Product  model.Product
	Distance float64
}

// Repository 商品向量仓储
type Repository struct {
	client *Client
}

// NewRepository 创建商品向量仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

var productOutputFields = []string{
	"id", "sku", "name", "description", "category", "brand", "color",
	"sizes", "price", "currency", "style_tags", "occasions", "season",
	"rating", "popularity", "in_stock", "image_url",
}

// FindNeighbors 按向量检索 topK 个近邻商品
func (r *Repository) FindNeighbors(ctx context.Context, vector []float32, topK int) ([]Neighbor, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	collName := r.client.CollectionName()
	ctx, span := tracer.Start(ctx, "milvus.FindNeighbors",
		trace.WithAttributes(
			attribute.String("collection", collName),
			attribute.Int("top_k", topK),
		))
	defer span.End()

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	start := time.Now()
	results, err := r.client.milvus.Search(ctx,
		collName,
		nil,
		"",
		productOutputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		"vector",
		entity.COSINE,
		topK,
		sp,
	)
	metrics.MilvusSearchDuration.WithLabelValues(collName).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MilvusSearchTotal.WithLabelValues(collName, "error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	metrics.MilvusSearchTotal.WithLabelValues(collName, "success").Inc()

	var neighbors []Neighbor
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			n := Neighbor{
				// COSINE 下 score 为相似度，转为距离供上层统一处理
				Distance: 1 - float64(result.Scores[i]),
				Product:  parseProduct(result.Fields, i),
			}
			neighbors = append(neighbors, n)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(neighbors)))
	return neighbors, nil
}

// parseProduct 从结果列解析商品元数据
func parseProduct(fields client.ResultSet, i int) model.Product {
	p := model.Product{}
	p.ID = varCharAt(fields, "id", i)
	p.SKU = varCharAt(fields, "sku", i)
	p.Name = varCharAt(fields, "name", i)
	p.Description = varCharAt(fields, "description", i)
	p.Category = varCharAt(fields, "category", i)
	p.Brand = varCharAt(fields, "brand", i)
	p.Color = varCharAt(fields, "color", i)
	p.Sizes = splitList(varCharAt(fields, "sizes", i))
	p.Price = doubleAt(fields, "price", i)
	p.Currency = varCharAt(fields, "currency", i)
	p.StyleTags = splitList(varCharAt(fields, "style_tags", i))
	p.Occasions = splitList(varCharAt(fields, "occasions", i))
	p.Season = varCharAt(fields, "season", i)
	p.Rating = doubleAt(fields, "rating", i)
	p.Popularity = doubleAt(fields, "popularity", i)
	p.InStock = boolAt(fields, "in_stock", i)
	p.ImageURL = varCharAt(fields, "image_url", i)
	return p
}

func varCharAt(fields client.ResultSet, name string, i int) string {
	if col, ok := fields.GetColumn(name).(*entity.ColumnVarChar); ok && i < len(col.Data()) {
		return col.Data()[i]
	}
	return ""
}

func doubleAt(fields client.ResultSet, name string, i int) float64 {
	if col, ok := fields.GetColumn(name).(*entity.ColumnDouble); ok && i < len(col.Data()) {
		return col.Data()[i]
	}
	return 0
}

func boolAt(fields client.ResultSet, name string, i int) bool {
	if col, ok := fields.GetColumn(name).(*entity.ColumnBool); ok && i < len(col.Data()) {
		return col.Data()[i]
	}
	return false
}

// splitList 解析逗号分隔的列表字段
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// CreateCollection 创建商品集合
func (r *Repository) CreateCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	collName := r.client.CollectionName()
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", collName)))
	defer span.End()

	if err := r.client.milvus.CreateCollection(ctx, ProductsSchema(collName), entity.DefaultShardNumber); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	collName := r.client.CollectionName()
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collName)))
	defer span.End()

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// InsertProducts 插入商品向量与元数据
func (r *Repository) InsertProducts(ctx context.Context, products []model.Product, vectors [][]float32) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	if len(products) != len(vectors) {
		return fmt.Errorf("products/vectors length mismatch: %d != %d", len(products), len(vectors))
	}
	if len(products) == 0 {
		return nil
	}
	collName := r.client.CollectionName()
	ctx, span := tracer.Start(ctx, "milvus.InsertProducts",
		trace.WithAttributes(
			attribute.String("collection", collName),
			attribute.Int("count", len(products)),
		))
	defer span.End()

	n := len(products)
	ids := make([]string, n)
	skus := make([]string, n)
	names := make([]string, n)
	descriptions := make([]string, n)
	categories := make([]string, n)
	brands := make([]string, n)
	colors := make([]string, n)
	sizes := make([]string, n)
	prices := make([]float64, n)
	currencies := make([]string, n)
	styleTags := make([]string, n)
	occasions := make([]string, n)
	seasons := make([]string, n)
	ratings := make([]float64, n)
	popularities := make([]float64, n)
	inStocks := make([]bool, n)
	imageURLs := make([]string, n)

	for i, p := range products {
		ids[i] = p.ID
		skus[i] = p.SKU
		names[i] = p.Name
		descriptions[i] = p.Description
		categories[i] = p.Category
		brands[i] = p.Brand
		colors[i] = p.Color
		sizes[i] = strings.Join(p.Sizes, ",")
		prices[i] = p.Price
		currencies[i] = p.Currency
		styleTags[i] = strings.Join(p.StyleTags, ",")
		occasions[i] = strings.Join(p.Occasions, ",")
		seasons[i] = p.Season
		ratings[i] = p.Rating
		popularities[i] = p.Popularity
		inStocks[i] = p.InStock
		imageURLs[i] = p.ImageURL
	}

	_, err := r.client.milvus.Insert(ctx, collName, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector("vector", VectorDimension, vectors),
		entity.NewColumnVarChar("sku", skus),
		entity.NewColumnVarChar("name", names),
		entity.NewColumnVarChar("description", descriptions),
		entity.NewColumnVarChar("category", categories),
		entity.NewColumnVarChar("brand", brands),
		entity.NewColumnVarChar("color", colors),
		entity.NewColumnVarChar("sizes", sizes),
		entity.NewColumnDouble("price", prices),
		entity.NewColumnVarChar("currency", currencies),
		entity.NewColumnVarChar("style_tags", styleTags),
		entity.NewColumnVarChar("occasions", occasions),
		entity.NewColumnVarChar("season", seasons),
		entity.NewColumnDouble("rating", ratings),
		entity.NewColumnDouble("popularity", popularities),
		entity.NewColumnBool("in_stock", inStocks),
		entity.NewColumnVarChar("image_url", imageURLs),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert products: %w", err)
	}
	return nil
}

// EnsureProductsCollection 确保商品集合与索引可用（不存在则创建）
// 约束：不做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureProductsCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	collName := r.client.CollectionName()
	exists, err := r.client.HasCollection(ctx, collName)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.CreateIndex(ctx)
	}

	return r.client.LoadCollection(ctx, collName)
}
