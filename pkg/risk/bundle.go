package risk

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shiftsync/shiftsync/pkg/errors"
)

// FeatureImportance 特征重要度
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// BundleConfig 构建模型制品所需的全部参数
type BundleConfig struct {
	Version    string
	Features   []string
	Encoders   map[string][]string
	Scaler     Scaler
	Model      Model
	Importance map[string]float64
}

// Bundle 已训练分类器制品：模型、缩放参数、编码表和特征顺序
// 构建后只读，重新加载时整体替换
type Bundle struct {
	version    string
	features   []string
	encoders   map[string]*EncodingTable
	scaler     Scaler
	model      Model
	importance []FeatureImportance
}

// NewBundle 校验参数并构建制品
func NewBundle(cfg BundleConfig) (*Bundle, error) {
	if cfg.Version == "" {
		return nil, errors.InvalidArtifact("缺少版本号")
	}
	if len(cfg.Features) == 0 {
		return nil, errors.InvalidArtifact("特征列表为空")
	}
	if cfg.Model == nil {
		return nil, errors.InvalidArtifact("缺少模型")
	}

	index := make(map[string]struct{}, len(cfg.Features))
	for _, f := range cfg.Features {
		if _, dup := index[f]; dup {
			return nil, errors.InvalidArtifact("特征重复: " + f)
		}
		index[f] = struct{}{}
	}

	if err := cfg.Scaler.Validate(len(cfg.Features)); err != nil {
		return nil, err
	}
	if cfg.Model.Dim() != len(cfg.Features) {
		return nil, errors.InvalidArtifact(fmt.Sprintf("模型维度 %d 与特征数 %d 不一致",
			cfg.Model.Dim(), len(cfg.Features)))
	}
	if forest, ok := cfg.Model.(*ForestModel); ok {
		if err := forest.Validate(); err != nil {
			return nil, err
		}
	}

	encoders := make(map[string]*EncodingTable, len(cfg.Encoders))
	for feature, classes := range cfg.Encoders {
		if _, ok := index[feature]; !ok {
			return nil, errors.InvalidArtifact("编码表对应的特征不在特征列表中: " + feature)
		}
		table, err := NewEncodingTable(feature, classes)
		if err != nil {
			return nil, err
		}
		encoders[feature] = table
	}

	importance := make([]FeatureImportance, 0, len(cfg.Importance))
	for feature, v := range cfg.Importance {
		if _, ok := index[feature]; !ok {
			return nil, errors.InvalidArtifact("重要度对应的特征不在特征列表中: " + feature)
		}
		importance = append(importance, FeatureImportance{Feature: feature, Importance: v})
	}
	slices.SortFunc(importance, func(a, b FeatureImportance) int {
		if c := cmp.Compare(b.Importance, a.Importance); c != 0 {
			return c
		}
		return cmp.Compare(a.Feature, b.Feature)
	})

	return &Bundle{
		version:  cfg.Version,
		features: slices.Clone(cfg.Features),
		encoders: encoders,
		scaler: Scaler{
			Center: slices.Clone(cfg.Scaler.Center),
			Scale:  slices.Clone(cfg.Scaler.Scale),
		},
		model:      cfg.Model,
		importance: importance,
	}, nil
}

// Version 返回制品版本
func (b *Bundle) Version() string {
	return b.version
}

// Features 返回有序特征列表副本
func (b *Bundle) Features() []string {
	return slices.Clone(b.features)
}

// ModelKind 返回模型类型
func (b *Bundle) ModelKind() string {
	return b.model.Kind()
}

// Encoder 返回特征的编码表
func (b *Bundle) Encoder(feature string) (*EncodingTable, bool) {
	t, ok := b.encoders[feature]
	return t, ok
}

// Importance 返回按重要度降序排列的特征重要度
func (b *Bundle) Importance() []FeatureImportance {
	return slices.Clone(b.importance)
}
