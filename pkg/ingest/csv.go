// Package ingest 解析上传的员工数据文件
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/model"
)

// DefaultMaxRows 单次上传的默认最大行数
const DefaultMaxRows = 100000

// Options 解析选项
type Options struct {
	MaxRows int  // 最大数据行数，<=0 使用默认值
	Comma   rune // 分隔符，0 为逗号
}

// ParseCSV 解析带表头的 CSV，每行转换为原始记录
// 单元格保留字符串原值，由归一化器统一处理；缺失的单元格不写入记录
func ParseCSV(r io.Reader, opts Options) ([]model.RawRecord, error) {
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	// 读取表头
	headers, err := reader.Read()
	if err == io.EOF {
		return nil, errors.InvalidInput("file", "文件为空，缺少表头")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "读取表头失败")
	}
	headers = cleanHeaders(headers)
	if !hasHeader(headers) {
		return nil, errors.InvalidInput("file", "表头为空")
	}

	// 读取数据
	var records []model.RawRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, fmt.Sprintf("第 %d 行解析失败", line))
		}
		if blankRow(row) {
			continue
		}
		if len(records) >= maxRows {
			return nil, errors.InvalidInput("file", fmt.Sprintf("数据行数超过上限 %d", maxRows))
		}

		record := make(model.RawRecord, len(headers))
		for i, value := range row {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			// 重复列名以第一列为准
			if _, exists := record[headers[i]]; exists {
				continue
			}
			record[headers[i]] = value
		}
		records = append(records, record)
	}

	if records == nil {
		records = []model.RawRecord{}
	}
	return records, nil
}

// cleanHeaders 去除 BOM 和首尾空白
func cleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func hasHeader(headers []string) bool {
	for _, h := range headers {
		if h != "" {
			return true
		}
	}
	return false
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
