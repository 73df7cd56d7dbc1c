package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"neosocial/internal/middleware"
	"neosocial/internal/services"
)

// ErrorResponse 是 API 错误响应的通用结构体。
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		// 头部已发送，编码失败时无法再改写状态码
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeJSONError 是一个辅助函数，用于发送 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// statusForKind maps a service error kind to an HTTP status.
func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError translates err into a JSON error. Unclassified errors are
// logged and reported with a generic message.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusForKind(services.KindOf(err))
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		writeJSONResponse(w, status, ErrorResponse{Error: "internal server error", Code: "internal"})
		return
	}
	writeJSONResponse(w, status, ErrorResponse{Error: err.Error(), Code: services.CodeOf(err)})
}

// currentUser returns the authenticated user id, writing a 401 when it is missing.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "用户未认证", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// decodeJSON reads the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return false
	}
	return true
}

// queryLimit parses the optional ?limit= parameter. Zero means "use the default".
func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		writeJSONError(w, "limit 参数无效", http.StatusBadRequest)
		return 0, false
	}
	return limit, true
}
