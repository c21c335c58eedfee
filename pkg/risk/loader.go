package risk

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shiftsync/shiftsync/pkg/errors"
)

// 制品文件格式
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Artifact 制品文件的序列化结构
type Artifact struct {
	Version    string              `json:"version" yaml:"version"`
	Features   []string            `json:"features" yaml:"features"`
	Encoders   map[string][]string `json:"encoders" yaml:"encoders"`
	Scaler     Scaler              `json:"scaler" yaml:"scaler"`
	Model      ModelSpec           `json:"model" yaml:"model"`
	Importance map[string]float64  `json:"importance,omitempty" yaml:"importance,omitempty"`
}

// ModelSpec 模型参数
type ModelSpec struct {
	Kind      string    `json:"kind" yaml:"kind"`
	Coef      []float64 `json:"coef,omitempty" yaml:"coef,omitempty"`
	Intercept float64   `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Trees     []Tree    `json:"trees,omitempty" yaml:"trees,omitempty"`
}

// Build 由序列化结构构建制品
func (a Artifact) Build() (*Bundle, error) {
	var m Model
	switch strings.ToLower(a.Model.Kind) {
	case KindLogistic:
		m = &LogisticModel{Coef: a.Model.Coef, Intercept: a.Model.Intercept}
	case KindForest:
		m = &ForestModel{Features: len(a.Features), Trees: a.Model.Trees}
	default:
		return nil, errors.InvalidArtifact("不支持的模型类型: " + a.Model.Kind)
	}

	return NewBundle(BundleConfig{
		Version:    a.Version,
		Features:   a.Features,
		Encoders:   a.Encoders,
		Scaler:     a.Scaler,
		Model:      m,
		Importance: a.Importance,
	})
}

// LoadBundle 从文件加载制品，按扩展名识别 JSON 或 YAML
func LoadBundle(path string) (*Bundle, error) {
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return nil, errors.InvalidArtifact("无法识别的制品文件扩展名: " + path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidArtifact, "读取模型制品失败").
			WithField("path", path)
	}
	return ParseBundle(data, format)
}

// ParseBundle 解析制品内容
func ParseBundle(data []byte, format string) (*Bundle, error) {
	var a Artifact
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&a); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidArtifact, "解析 JSON 制品失败")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &a); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidArtifact, "解析 YAML 制品失败")
		}
	default:
		return nil, errors.InvalidArtifact("不支持的制品格式: " + format)
	}
	return a.Build()
}
