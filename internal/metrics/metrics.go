// Package metrics 提供Prometheus监控指标
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shiftsync/shiftsync/pkg/model"
)

// Metrics 服务指标集合，同时作为引擎观察者
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 指标
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// 引擎指标
	StageRunsTotal       *prometheus.CounterVec
	StageDuration        *prometheus.HistogramVec
	StageRecordsTotal    *prometheus.CounterVec
	RiskAssessmentsTotal *prometheus.CounterVec
	RecommendationsTotal *prometheus.CounterVec
	ModelReloadsTotal    *prometheus.CounterVec
	ModelInfo            *prometheus.GaugeVec
	HighRiskEmployees    prometheus.Gauge

	// 数据库指标
	DBQueryDuration *prometheus.HistogramVec
}

// Config 指标配置
type Config struct {
	Namespace     string
	WithCollector bool // 是否注册 Go 运行时与进程指标
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{Namespace: "shiftsync", WithCollector: true}
}

// New 创建指标集合并注册到独立的注册表
func New(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()
	if cfg.WithCollector {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP请求延迟",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_in_flight",
			Help:      "正在处理的HTTP请求数",
		},
	)

	m.StageRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "engine_stage_runs_total",
			Help:      "引擎阶段执行次数",
		},
		[]string{"stage", "status"},
	)

	m.StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "engine_stage_duration_seconds",
			Help:      "引擎阶段耗时",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	m.StageRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "engine_stage_records_total",
			Help:      "引擎阶段处理的员工记录数",
		},
		[]string{"stage"},
	)

	m.RiskAssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "risk_assessments_total",
			Help:      "按风险等级统计的评估数",
		},
		[]string{"band"},
	)

	m.RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "roster_recommendations_total",
			Help:      "按动作统计的排班调整建议数",
		},
		[]string{"action"},
	)

	m.ModelReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "model_reloads_total",
			Help:      "风险模型加载次数",
		},
		[]string{"status"},
	)

	m.ModelInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "model_info",
			Help:      "当前风险模型版本",
		},
		[]string{"version"},
	)

	m.HighRiskEmployees = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "last_assessment_high_risk_employees",
			Help:      "最近一次评估中高风险员工数",
		},
	)

	m.DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "db_query_duration_seconds",
			Help:      "数据库语句耗时",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "status"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.StageRunsTotal,
		m.StageDuration,
		m.StageRecordsTotal,
		m.RiskAssessmentsTotal,
		m.RecommendationsTotal,
		m.ModelReloadsTotal,
		m.ModelInfo,
		m.HighRiskEmployees,
		m.DBQueryDuration,
	)

	return m
}

// Handler 返回Prometheus格式的指标HTTP处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDB 注册连接池统计
func (m *Metrics) RegisterDB(db *sql.DB, name string) {
	m.registry.MustRegister(collectors.NewDBStatsCollector(db, name))
}

// ObserveQuery 记录一条数据库语句
func (m *Metrics) ObserveQuery(operation string, duration time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(operation, status(err)).Observe(duration.Seconds())
}

// RecordHTTPRequest 记录请求指标
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveStage 记录一次引擎阶段执行
func (m *Metrics) ObserveStage(stage string, duration time.Duration, records int, err error) {
	m.StageRunsTotal.WithLabelValues(stage, status(err)).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if records > 0 {
		m.StageRecordsTotal.WithLabelValues(stage).Add(float64(records))
	}
}

// ObserveAssessments 按风险等级累计评估数
func (m *Metrics) ObserveAssessments(assessments []model.RiskAssessment) {
	high := 0
	for _, a := range assessments {
		m.RiskAssessmentsTotal.WithLabelValues(string(a.Band)).Inc()
		if a.Band == model.RiskHigh {
			high++
		}
	}
	m.HighRiskEmployees.Set(float64(high))
}

// ObserveRecommendations 按动作累计调整建议
func (m *Metrics) ObserveRecommendations(recs []model.Recommendation) {
	for _, r := range recs {
		for _, action := range r.Actions() {
			m.RecommendationsTotal.WithLabelValues(action).Inc()
		}
	}
}

// ObserveReload 记录模型加载结果，成功时更新版本信息
func (m *Metrics) ObserveReload(version string, err error) {
	m.ModelReloadsTotal.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.ModelInfo.Reset()
		m.ModelInfo.WithLabelValues(version).Set(1)
	}
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
