// Package config 提供配置管理
package config

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/fatigue"
	"github.com/shiftsync/shiftsync/pkg/logger"
	"github.com/shiftsync/shiftsync/pkg/optimizer"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Model     ModelConfig     `envPrefix:"MODEL_"`
	Engine    EngineConfig    `envPrefix:"ENGINE_"`
	Fatigue   FatigueConfig   `envPrefix:"FATIGUE_"`
	Optimizer OptimizerConfig `envPrefix:"OPTIMIZER_"`
	API       APIConfig       `envPrefix:"API_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `env:"NAME" envDefault:"shiftsync"`
	Env       string `env:"ENV" envDefault:"development"`
	Port      int    `env:"PORT" envDefault:"7012"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"` // json/console
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stdout"`  // stdout/stderr/file
	LogFile   string `env:"LOG_FILE"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `env:"ENABLED" envDefault:"false"`
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	Name            string        `env:"NAME" envDefault:"shiftsync"`
	User            string        `env:"USER" envDefault:"shiftsync"`
	Password        string        `env:"PASSWORD"`
	SSLMode         string        `env:"SSL_MODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	SlowQuery       time.Duration `env:"SLOW_QUERY" envDefault:"100ms"`
	ConnectTimeout  time.Duration `env:"CONNECT_TIMEOUT" envDefault:"5s"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"false"`
	Host     string        `env:"HOST" envDefault:"localhost"`
	Port     int           `env:"PORT" envDefault:"6379"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	PoolSize int           `env:"POOL_SIZE" envDefault:"10"`
	RunTTL   time.Duration `env:"RUN_TTL" envDefault:"24h"` // 优化结果缓存时长

	// 熔断：连续失败达到阈值后在 BreakerTimeout 内直接拒绝
	BreakerFailures uint32        `env:"BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout  time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`
}

// Addr 返回Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ModelConfig 风险模型制品配置
type ModelConfig struct {
	ArtifactPath string `env:"ARTIFACT_PATH" envDefault:"artifacts/attrition_model.json"`
}

// EngineConfig 引擎配置
type EngineConfig struct {
	Workers int `env:"WORKERS" envDefault:"4"`
}

// FatigueConfig 疲劳评分权重
type FatigueConfig struct {
	OvertimeBase      float64 `env:"OVERTIME_BASE" envDefault:"40"`
	OvertimeWeight    float64 `env:"OVERTIME_WEIGHT" envDefault:"40"`
	NightWeight       float64 `env:"NIGHT_WEIGHT" envDefault:"25"`
	CommuteBase       float64 `env:"COMMUTE_BASE" envDefault:"50"`
	CommuteWeight     float64 `env:"COMMUTE_WEIGHT" envDefault:"15"`
	AgePivot          float64 `env:"AGE_PIVOT" envDefault:"60"`
	AgeSpan           float64 `env:"AGE_SPAN" envDefault:"40"`
	AgeWeight         float64 `env:"AGE_WEIGHT" envDefault:"10"`
	LeaveBase         float64 `env:"LEAVE_BASE" envDefault:"10"`
	LeaveWeight       float64 `env:"LEAVE_WEIGHT" envDefault:"10"`
	CriticalThreshold float64 `env:"CRITICAL_THRESHOLD" envDefault:"75"` // 概览中的临界疲劳评分
}

// Weights 转换为评分权重
func (c *FatigueConfig) Weights() fatigue.Weights {
	return fatigue.Weights{
		OvertimeBase:   c.OvertimeBase,
		OvertimeWeight: c.OvertimeWeight,
		NightWeight:    c.NightWeight,
		CommuteBase:    c.CommuteBase,
		CommuteWeight:  c.CommuteWeight,
		AgePivot:       c.AgePivot,
		AgeSpan:        c.AgeSpan,
		AgeWeight:      c.AgeWeight,
		LeaveBase:      c.LeaveBase,
		LeaveWeight:    c.LeaveWeight,
	}
}

// OptimizerConfig 排班优化策略配置
type OptimizerConfig struct {
	Policy                   string  `env:"POLICY" envDefault:"standard"` // standard/advanced
	FatigueThreshold         float64 `env:"FATIGUE_THRESHOLD" envDefault:"75"`
	FatigueOvertimeCap       float64 `env:"FATIGUE_OVERTIME_CAP" envDefault:"8"`
	RiskOvertimeCap          float64 `env:"RISK_OVERTIME_CAP" envDefault:"10"`
	ProbabilityThreshold     float64 `env:"PROBABILITY_THRESHOLD" envDefault:"0.4"`
	ModerateFatigueThreshold float64 `env:"MODERATE_FATIGUE_THRESHOLD" envDefault:"60"`
	ModerateOvertimeCap      float64 `env:"MODERATE_OVERTIME_CAP" envDefault:"12"`
}

// ToPolicy 转换为优化策略
func (c *OptimizerConfig) ToPolicy() (optimizer.Policy, error) {
	kind, err := optimizer.ParsePolicyKind(c.Policy)
	if err != nil {
		return optimizer.Policy{}, err
	}
	p := optimizer.Policy{
		Kind:                     kind,
		FatigueThreshold:         c.FatigueThreshold,
		FatigueOvertimeCap:       c.FatigueOvertimeCap,
		RiskOvertimeCap:          c.RiskOvertimeCap,
		ProbabilityThreshold:     c.ProbabilityThreshold,
		ModerateFatigueThreshold: c.ModerateFatigueThreshold,
		ModerateOvertimeCap:      c.ModerateOvertimeCap,
	}
	return p, p.Validate()
}

// APIConfig API配置
type APIConfig struct {
	Timeout         time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"67108864"` // 64MB
	MaxUploadRows   int           `env:"MAX_UPLOAD_ROWS" envDefault:"100000"`
	RateLimit       float64       `env:"RATE_LIMIT" envDefault:"100"` // 每秒请求数，0 表示不限流
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if stderrors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			// 只返回第一个错误使得日志更清晰
			return nil, errors.Wrap(aggErr.Errors[0], errors.CodeInvalidInput, "加载配置失败")
		}
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "加载配置失败")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	ve := &errors.ValidationErrors{}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		ve.Add("APP_PORT", "端口必须在 1-65535 之间")
	}
	if c.Engine.Workers <= 0 {
		ve.Add("ENGINE_WORKERS", "必须大于 0")
	}
	if c.Model.ArtifactPath == "" {
		ve.Add("MODEL_ARTIFACT_PATH", "不能为空")
	}
	if c.API.MaxBodyBytes <= 0 {
		ve.Add("API_MAX_BODY_BYTES", "必须大于 0")
	}
	if c.API.RateLimit < 0 {
		ve.Add("API_RATE_LIMIT", "不能为负数")
	}
	if c.Redis.Enabled && c.Redis.RunTTL <= 0 {
		ve.Add("REDIS_RUN_TTL", "必须大于 0")
	}
	if _, err := c.Optimizer.ToPolicy(); err != nil {
		ve.Add("OPTIMIZER_POLICY", err.Error())
	}
	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// LoggerConfig 转换为日志配置
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.App.LogLevel
	cfg.Format = c.App.LogFormat
	cfg.Output = c.App.LogOutput
	cfg.FilePath = c.App.LogFile
	return cfg
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}
