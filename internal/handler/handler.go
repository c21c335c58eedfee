// Package handler 提供API处理器
package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"github.com/shiftsync/shiftsync/internal/cache"
	"github.com/shiftsync/shiftsync/internal/metrics"
	"github.com/shiftsync/shiftsync/internal/middleware"
	"github.com/shiftsync/shiftsync/internal/repository"
	"github.com/shiftsync/shiftsync/pkg/engine"
	"github.com/shiftsync/shiftsync/pkg/ingest"
	"github.com/shiftsync/shiftsync/pkg/model"
	"github.com/shiftsync/shiftsync/pkg/stats"
)

// Storage 员工与风险评估存储
type Storage interface {
	AppendEmployees(ctx context.Context, records []model.EmployeeRecord) (int, error)
	ListEmployees(ctx context.Context, filter repository.ListFilter) ([]model.EmployeeRecord, error)
	ListLatestEmployees(ctx context.Context, filter repository.ListFilter) ([]model.EmployeeRecord, error)
	CountEmployees(ctx context.Context, filter repository.ListFilter) (int, error)
	ReplacePredictions(ctx context.Context, assessments []model.RiskAssessment, modelVersion string) error
	ListPredictions(ctx context.Context) ([]repository.StoredPrediction, error)
	ListPredictionsFor(ctx context.Context, ids []string) ([]repository.StoredPrediction, error)
	WipeAll(ctx context.Context) (int64, error)
}

// BuildInfo 构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

// Options 处理器依赖
type Options struct {
	Service      string
	Build        BuildInfo
	Engine       *engine.Engine
	Storage      Storage        // nil 表示未启用数据库
	Runs         cache.RunStore // nil 时使用进程内存储
	Analyzer     *stats.Analyzer
	Metrics      *metrics.Metrics // nil 表示不采集指标
	MetricsPath  string
	ArtifactPath string
	Timeout      time.Duration
	MaxBodyBytes int64
	MaxRows      int
	RateLimit    float64 // 每秒请求数，0 表示不限流
}

// Handler API处理器
type Handler struct {
	opts     Options
	engine   *engine.Engine
	storage  Storage
	runs     cache.RunStore
	analyzer *stats.Analyzer

	validate   *validator.Validate
	translator ut.Translator

	Mux *chi.Mux
}

// NewHandler 创建处理器
func NewHandler(opts Options) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}
	// 错误信息中使用 JSON 字段名
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if opts.Engine == nil {
		opts.Engine = engine.New(engine.Options{})
	}
	if opts.Runs == nil {
		opts.Runs = cache.NewMemoryRunStore(cache.DefaultTTL)
	}
	if opts.Analyzer == nil {
		opts.Analyzer = stats.NewAnalyzer()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = ingest.DefaultMaxRows
	}
	if opts.Service == "" {
		opts.Service = "shiftsync"
	}

	return &Handler{
		opts:       opts,
		engine:     opts.Engine,
		storage:    opts.Storage,
		runs:       opts.Runs,
		analyzer:   opts.Analyzer,
		validate:   validate,
		translator: trans,

		Mux: chi.NewRouter(),
	}, nil
}

// RegisterRoutes 注册路由
// 中间件执行顺序：requestID -> recovery -> logging -> metrics -> cors -> rateLimit -> handler
func (h *Handler) RegisterRoutes() {
	h.Mux.Use(middleware.RequestID)
	h.Mux.Use(middleware.Recovery)
	h.Mux.Use(middleware.Logging)
	if h.opts.Metrics != nil {
		h.Mux.Use(h.opts.Metrics.Middleware)
	}
	h.Mux.Use(middleware.CORS)
	h.Mux.Use(middleware.SecurityHeaders)
	if h.opts.RateLimit > 0 {
		h.Mux.Use(middleware.RateLimit(middleware.NewRateLimiter(h.opts.RateLimit)))
	}

	// 系统端点
	h.Mux.Get("/health", h.Health)
	h.Mux.Get("/version", h.Version)
	if h.opts.Metrics != nil {
		h.Mux.Handle(h.opts.MetricsPath, h.opts.Metrics.Handler())
	}

	h.Mux.Route("/api/v1", func(r chi.Router) {
		r.Use(h.timeout)
		r.Use(h.limitBody)

		r.Post("/fatigue/score", h.ScoreFatigue)

		r.Route("/risk", func(r chi.Router) {
			r.Post("/assess", h.AssessRisk)
			r.Post("/assess-stored", h.AssessStored)
		})

		r.Route("/roster", func(r chi.Router) {
			r.Post("/optimize", h.Optimize)
			r.Post("/optimize-stored", h.OptimizeStored)
			r.Get("/runs/{id}", h.GetRun)
			r.Post("/whatif", h.WhatIf)
			r.Get("/rules", h.Rules)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Post("/overview", h.Overview)
			r.Get("/overview", h.StoredOverview)
		})

		r.Route("/model", func(r chi.Router) {
			r.Get("/importance", h.Importance)
			r.Post("/reload", h.ReloadModel)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Post("/upload", h.UploadEmployees)
			r.Get("/", h.ListEmployees)
			r.Delete("/", h.WipeEmployees)
		})
	})
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	ModelLoaded  bool   `json:"model_loaded"`
	ModelVersion string `json:"model_version,omitempty"`
	Storage      bool   `json:"storage"`
	StorageError string `json:"storage_error,omitempty"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health 健康检查；模型未加载或数据库不可达时仍返回 200，以 status=degraded 标识
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	version := h.engine.ModelVersion()
	resp := HealthResponse{
		Status:       "ok",
		Service:      h.opts.Service,
		ModelLoaded:  version != "",
		ModelVersion: version,
		Storage:      h.storage != nil,
	}
	if !resp.ModelLoaded {
		resp.Status = "degraded"
	}
	if p, ok := h.storage.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.StorageError = err.Error()
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Version 版本信息
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.opts.Build)
}

// timeout 为 API 请求设置处理时限
func (h *Handler) timeout(next http.Handler) http.Handler {
	if h.opts.Timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.opts.Timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limitBody 限制请求体大小
func (h *Handler) limitBody(next http.Handler) http.Handler {
	if h.opts.MaxBodyBytes <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}
