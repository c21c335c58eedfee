package risk

import (
	"fmt"

	"github.com/shiftsync/shiftsync/pkg/errors"
)

// Scaler 按特征的中心化/缩放变换 (x - center) / scale
type Scaler struct {
	Center []float64 `json:"center" yaml:"center"`
	Scale  []float64 `json:"scale" yaml:"scale"`
}

// Dim 返回特征维度
func (s *Scaler) Dim() int {
	return len(s.Center)
}

// Validate 检查参数维度
func (s *Scaler) Validate(dim int) error {
	if len(s.Center) != dim || len(s.Scale) != dim {
		return errors.InvalidArtifact(fmt.Sprintf("缩放参数维度 center=%d scale=%d 与特征数 %d 不一致",
			len(s.Center), len(s.Scale), dim))
	}
	return nil
}

// Transform 返回缩放后的新向量；scale 为 0 的特征视为 1
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Center[i]) / scale
	}
	return out
}
