// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// VectorDimension 商品向量维度
const VectorDimension = 768

// ProductsSchema 商品集合 Schema
// 列表类字段（style_tags/occasions/sizes）以逗号分隔的 VarChar 存储。
func ProductsSchema(collection string) *entity.Schema {
	return &entity.Schema{
		CollectionName: collection,
		Description:    "fashion product embeddings with metadata payload",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "vector",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", VectorDimension)},
			},
			{
				Name:       "sku",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "name",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "256"},
			},
			{
				Name:       "description",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "2048"},
			},
			{
				Name:       "category",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "brand",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "128"},
			},
			{
				Name:       "color",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "sizes",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "256"},
			},
			{
				Name:     "price",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:       "currency",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "8"},
			},
			{
				Name:       "style_tags",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:       "occasions",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:       "season",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "32"},
			},
			{
				Name:     "rating",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "popularity",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "in_stock",
				DataType: entity.FieldTypeBool,
			},
			{
				Name:       "image_url",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
		},
	}
}
