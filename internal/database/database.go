// Package database 管理 PostgreSQL 连接池、事务与查询观测
package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/shiftsync/shiftsync/internal/config"
	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/logger"
)

const defaultSlowQuery = 100 * time.Millisecond

// QueryObserver 接收每条 SQL 的执行耗时
type QueryObserver interface {
	ObserveQuery(operation string, duration time.Duration, err error)
}

// Option 连接选项
type Option func(*DB)

// WithQueryObserver 设置查询观察者
func WithQueryObserver(o QueryObserver) Option {
	return func(db *DB) {
		db.observer = o
	}
}

// DB 连接池封装，记录慢查询并上报查询耗时
type DB struct {
	*sql.DB
	slow     time.Duration
	observer QueryObserver
}

// New 打开连接池并确认数据库可达
func New(cfg *config.DatabaseConfig, opts ...Option) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Database(err, "打开数据库连接失败")
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	db := &DB{DB: pool, slow: cfg.SlowQuery}
	if db.slow <= 0 {
		db.slow = defaultSlowQuery
	}
	for _, opt := range opts {
		opt(db)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// sql.Open 不会建立连接，需要显式 ping
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("数据库连接成功")

	return db, nil
}

// Close 关闭连接池
func (db *DB) Close() error {
	logger.Info().Msg("关闭数据库连接")
	return db.DB.Close()
}

// Ping 检查数据库可达
func (db *DB) Ping(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return errors.Database(err, "数据库连接测试失败")
	}
	return nil
}

// Transaction 在事务中执行 fn，fn 返回错误或 panic 时回滚
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	start := time.Now()
	defer func() {
		db.observe("TX", "", time.Since(start), err)
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Database(err, "开始事务失败")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("事务回滚失败")
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Database(err, "事务提交失败")
	}
	return nil
}

// ExecContext 执行语句
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := db.DB.ExecContext(ctx, query, args...)
	db.observe(operation(query), query, time.Since(start), err)
	return result, err
}

// QueryContext 执行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := db.DB.QueryContext(ctx, query, args...)
	db.observe(operation(query), query, time.Since(start), err)
	return rows, err
}

// QueryRowContext 执行单行查询，错误在 Scan 时返回，不计入失败
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := db.DB.QueryRowContext(ctx, query, args...)
	db.observe(operation(query), query, time.Since(start), nil)
	return row
}

func (db *DB) observe(op, query string, duration time.Duration, err error) {
	if db.observer != nil {
		db.observer.ObserveQuery(op, duration, err)
	}
	if query != "" && duration > db.slow {
		logger.Warn().
			Str("operation", op).
			Str("query", truncateQuery(query)).
			Dur("duration", duration).
			Msg("慢SQL查询")
	}
}

// operation 取语句首个关键字作为操作类型
func operation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}

// truncateQuery 截断长查询
func truncateQuery(query string) string {
	if len(query) > 200 {
		return query[:200] + "..."
	}
	return query
}
