package handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/shiftsync/shiftsync/internal/repository"
	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/ingest"
	"github.com/shiftsync/shiftsync/pkg/logger"
	"github.com/shiftsync/shiftsync/pkg/model"
)

// uploadField 表单上传时的文件字段名
const uploadField = "file"

// UploadResponse 上传响应
type UploadResponse struct {
	Appended int `json:"appended"`
	Total    int `json:"total"`
}

// EmployeeListResponse 员工列表响应
type EmployeeListResponse struct {
	Employees []model.EmployeeRecord `json:"employees"`
	Total     int                    `json:"total"`
}

// WipeResponse 清空响应
type WipeResponse struct {
	Removed int64 `json:"removed"`
}

// UploadEmployees 上传CSV并追加到员工表
// 支持 multipart 表单（字段 file）或直接以请求体提交 CSV
func (h *Handler) UploadEmployees(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		respondError(w, r, errors.StorageUnavailable("数据库"))
		return
	}

	body, closeFn, err := uploadBody(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer closeFn()

	raw, err := ingest.ParseCSV(body, ingest.Options{MaxRows: h.opts.MaxRows})
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	records, err := h.engine.Prepare(ctx, raw)
	if err != nil {
		respondError(w, r, err)
		return
	}

	appended, err := h.storage.AppendEmployees(ctx, records)
	if err != nil {
		respondError(w, r, errors.Database(err, "保存员工失败"))
		return
	}
	total, err := h.storage.CountEmployees(ctx, repository.DefaultListFilter())
	if err != nil {
		respondError(w, r, errors.Database(err, "统计员工失败"))
		return
	}

	logger.WithContext(ctx).Info().
		Int("appended", appended).
		Int("total", total).
		Msg("员工数据已追加")

	respondOK(w, UploadResponse{Appended: appended, Total: total})
}

// ListEmployees 列出已存储的员工
// 支持 department、shift_type、search（编号前缀）、limit、offset 查询参数
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		respondError(w, r, errors.StorageUnavailable("数据库"))
		return
	}

	filter, err := listFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ctx := r.Context()
	employees, err := h.storage.ListEmployees(ctx, filter)
	if err != nil {
		respondError(w, r, errors.Database(err, "读取员工失败"))
		return
	}
	total, err := h.storage.CountEmployees(ctx, filter)
	if err != nil {
		respondError(w, r, errors.Database(err, "统计员工失败"))
		return
	}
	respondOK(w, EmployeeListResponse{Employees: employees, Total: total})
}

// WipeEmployees 清空全部员工与风险评估
func (h *Handler) WipeEmployees(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		respondError(w, r, errors.StorageUnavailable("数据库"))
		return
	}

	removed, err := h.storage.WipeAll(r.Context())
	if err != nil {
		respondError(w, r, errors.Database(err, "清空数据失败"))
		return
	}

	logger.WithContext(r.Context()).Warn().
		Int64("removed", removed).
		Msg("已清空全部员工与风险评估")

	respondOK(w, WipeResponse{Removed: removed})
}

func uploadBody(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeInvalidInput, "读取上传文件失败")
	}
	return file, func() { file.Close() }, nil
}

func listFilter(r *http.Request) (repository.ListFilter, error) {
	q := r.URL.Query()
	filter := repository.DefaultListFilter().
		WithDepartment(q.Get("department")).
		WithShiftType(q.Get("shift_type"))
	filter.Search = q.Get("search")

	limit, err := nonNegativeParam(q.Get("limit"), "limit")
	if err != nil {
		return filter, err
	}
	offset, err := nonNegativeParam(q.Get("offset"), "offset")
	if err != nil {
		return filter, err
	}
	return filter.WithLimit(limit).WithOffset(offset), nil
}

func nonNegativeParam(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.InvalidInput(name, "必须为非负整数")
	}
	return n, nil
}
