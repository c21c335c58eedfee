package risk

import (
	"fmt"
	"math"

	"github.com/shiftsync/shiftsync/pkg/errors"
)

// 支持的模型类型
const (
	KindLogistic = "logistic"
	KindForest   = "forest"
)

// Model 已训练的二分类器
type Model interface {
	// Kind 返回模型类型
	Kind() string

	// Dim 返回期望的特征维度
	Dim() int

	// PredictProba 返回每行正类（离职）概率
	PredictProba(rows [][]float64) ([]float64, error)
}

// LogisticModel 逻辑回归
type LogisticModel struct {
	Coef      []float64 `json:"coef" yaml:"coef"`
	Intercept float64   `json:"intercept" yaml:"intercept"`
}

// Kind 实现 Model
func (m *LogisticModel) Kind() string { return KindLogistic }

// Dim 实现 Model
func (m *LogisticModel) Dim() int { return len(m.Coef) }

// PredictProba 实现 Model
func (m *LogisticModel) PredictProba(rows [][]float64) ([]float64, error) {
	probs := make([]float64, len(rows))
	for i, x := range rows {
		if len(x) != len(m.Coef) {
			return nil, dimensionError(len(m.Coef), len(x))
		}
		z := m.Intercept
		for j, c := range m.Coef {
			z += c * x[j]
		}
		probs[i] = 1 / (1 + math.Exp(-z))
	}
	return probs, nil
}

// TreeNode 决策树节点（与 sklearn tree_ 数组布局一致）
// Left 为 -1 表示叶子节点；非叶子节点 x[Feature] <= Threshold 走左子树
type TreeNode struct {
	Feature   int       `json:"feature" yaml:"feature"`
	Threshold float64   `json:"threshold" yaml:"threshold"`
	Left      int       `json:"left" yaml:"left"`
	Right     int       `json:"right" yaml:"right"`
	Value     []float64 `json:"value" yaml:"value"` // 叶子节点各类别样本权重 [负类, 正类]
}

// Tree 决策树
type Tree struct {
	Nodes []TreeNode `json:"nodes" yaml:"nodes"`
}

// ForestModel 随机森林，概率为各树叶子正类比例的均值
type ForestModel struct {
	Features int    `json:"n_features" yaml:"n_features"`
	Trees    []Tree `json:"trees" yaml:"trees"`
}

// Kind 实现 Model
func (m *ForestModel) Kind() string { return KindForest }

// Dim 实现 Model
func (m *ForestModel) Dim() int { return m.Features }

// Validate 检查树结构
func (m *ForestModel) Validate() error {
	if len(m.Trees) == 0 {
		return errors.InvalidArtifact("随机森林没有树")
	}
	for ti, tree := range m.Trees {
		if len(tree.Nodes) == 0 {
			return errors.InvalidArtifact(fmt.Sprintf("第 %d 棵树为空", ti))
		}
		for ni, n := range tree.Nodes {
			if n.Left == -1 {
				if len(n.Value) != 2 {
					return errors.InvalidArtifact(fmt.Sprintf("树 %d 叶子 %d 的 value 长度应为 2", ti, ni))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= m.Features {
				return errors.InvalidArtifact(fmt.Sprintf("树 %d 节点 %d 的特征下标 %d 越界", ti, ni, n.Feature))
			}
			// 子节点下标必须递增，保证无环
			if n.Left <= ni || n.Right <= ni || n.Left >= len(tree.Nodes) || n.Right >= len(tree.Nodes) {
				return errors.InvalidArtifact(fmt.Sprintf("树 %d 节点 %d 的子节点下标无效", ti, ni))
			}
		}
	}
	return nil
}

// PredictProba 实现 Model
func (m *ForestModel) PredictProba(rows [][]float64) ([]float64, error) {
	probs := make([]float64, len(rows))
	for i, x := range rows {
		if len(x) != m.Features {
			return nil, dimensionError(m.Features, len(x))
		}
		var sum float64
		for _, tree := range m.Trees {
			sum += tree.leafProba(x)
		}
		probs[i] = sum / float64(len(m.Trees))
	}
	return probs, nil
}

func (t Tree) leafProba(x []float64) float64 {
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.Left == -1 {
			total := n.Value[0] + n.Value[1]
			if total == 0 {
				return 0
			}
			return n.Value[1] / total
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

func dimensionError(expected, got int) error {
	return errors.New(errors.CodeInternal, fmt.Sprintf("特征维度不一致: 期望 %d, 实际 %d", expected, got))
}
