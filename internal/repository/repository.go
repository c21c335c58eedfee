// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

// insertBatchSize 单条 INSERT 语句的最大行数
const insertBatchSize = 500

// psql PostgreSQL 占位符风格的语句构建器
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ListFilter 列表查询过滤器
type ListFilter struct {
	Department string `json:"department,omitempty"`
	ShiftType  string `json:"shift_type,omitempty"`
	Search     string `json:"search,omitempty"` // 员工编号前缀
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"` // 0 表示不限制
}

// DefaultListFilter 返回默认过滤器（不分页）
func DefaultListFilter() ListFilter {
	return ListFilter{}
}

// WithLimit 设置限制
func (f ListFilter) WithLimit(limit int) ListFilter {
	f.Limit = limit
	return f
}

// WithOffset 设置偏移
func (f ListFilter) WithOffset(offset int) ListFilter {
	f.Offset = offset
	return f
}

// WithDepartment 设置部门过滤
func (f ListFilter) WithDepartment(department string) ListFilter {
	f.Department = department
	return f
}

// WithShiftType 设置班次过滤
func (f ListFilter) WithShiftType(shift string) ListFilter {
	f.ShiftType = shift
	return f
}

// apply 将过滤条件应用到查询
func (f ListFilter) apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.Department != "" {
		b = b.Where(sq.Eq{"department": f.Department})
	}
	if f.ShiftType != "" {
		b = b.Where(sq.Eq{"shift_type": f.ShiftType})
	}
	if f.Search != "" {
		b = b.Where(sq.Like{"employee_id": f.Search + "%"})
	}
	return b
}

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Transactor 支持事务的数据库
type Transactor interface {
	DB
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

// chunks 按批次大小切分
func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
