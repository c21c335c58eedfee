package risk

import (
	"github.com/shiftsync/shiftsync/pkg/errors"
)

// EncodingTable 单个类别特征的编码表（取值 -> 整数编码）
type EncodingTable struct {
	feature string
	classes []string
	codes   map[string]int
}

// NewEncodingTable 由训练时的有序类别列表创建编码表，编码为类别在列表中的下标
func NewEncodingTable(feature string, classes []string) (*EncodingTable, error) {
	if len(classes) == 0 {
		return nil, errors.InvalidArtifact("特征 " + feature + " 的编码表为空")
	}
	codes := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, dup := codes[c]; dup {
			return nil, errors.InvalidArtifact("特征 " + feature + " 的编码表存在重复类别 " + c)
		}
		codes[c] = i
	}
	cp := make([]string, len(classes))
	copy(cp, classes)
	return &EncodingTable{feature: feature, classes: cp, codes: codes}, nil
}

// Feature 返回特征名
func (t *EncodingTable) Feature() string {
	return t.feature
}

// Classes 返回有序类别列表副本
func (t *EncodingTable) Classes() []string {
	cp := make([]string, len(t.classes))
	copy(cp, t.classes)
	return cp
}

// Encode 编码类别取值；训练时未出现的取值返回 UNKNOWN_CATEGORY 错误
func (t *EncodingTable) Encode(value string) (int, error) {
	code, ok := t.codes[value]
	if !ok {
		return 0, errors.UnknownCategory(t.feature, value)
	}
	return code, nil
}
