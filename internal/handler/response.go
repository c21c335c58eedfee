package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/shiftsync/shiftsync/pkg/errors"
	"github.com/shiftsync/shiftsync/pkg/logger"
)

// Response 成功响应
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error   bool                   `json:"error"`
	Code    errors.Code            `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Hint    string                 `json:"hint,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// hints 错误码对应的处理建议
var hints = map[errors.Code]string{
	errors.CodeJoinMismatch:       "请先重新运行风险评估",
	errors.CodeModelUnavailable:   "请检查模型制品后调用 POST /api/v1/model/reload",
	errors.CodeSchemaMismatch:     "请检查上传数据是否包含模型所需的全部列",
	errors.CodeUnknownCategory:    "请确认类别取值与模型训练时一致",
	errors.CodeStorageUnavailable: "请设置 DB_ENABLED=true 启用数据库",
	errors.CodeTimeout:            "请减少单次提交的员工数量后重试",
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondOK 返回成功响应
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// respondError 返回错误响应；非 AppError 按内部错误处理
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Wrap(err, errors.CodeInternal, "服务器内部错误")
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	event := logger.WithContext(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = logger.WithContext(r.Context()).Error()
	}
	event.Err(err).
		Str("code", string(appErr.Code)).
		Str("path", r.URL.Path).
		Msg("请求处理失败")

	respondJSON(w, status, ErrorResponse{
		Error:   true,
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
		Hint:    hints[appErr.Code],
		Fields:  appErr.Fields,
	})
}

// decode 解析并验证JSON请求体
func (h *Handler) decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case stderrors.As(err, &maxErr):
			return errors.New(errors.CodeInvalidInput, "请求体过大")
		case stderrors.Is(err, io.EOF):
			return errors.New(errors.CodeInvalidInput, "请求体不能为空")
		default:
			return errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败")
		}
	}
	return h.validateStruct(v)
}

// validateStruct 验证请求结构，返回第一条中文错误
func (h *Handler) validateStruct(v interface{}) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return errors.Wrap(err, errors.CodeInvalidInput, "请求验证失败")
	}

	ve := &errors.ValidationErrors{}
	for _, fe := range validationErrors {
		ve.Add(fe.Field(), fe.Translate(h.translator))
	}
	appErr := ve.ToAppError()
	appErr.Message = validationErrors[0].Translate(h.translator)
	return appErr
}
