// Пакет errors — конструкторы стандартных ошибок Auth Admin.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeUpstreamError   = "UPSTREAM_ERROR"
	CodeIDPUnavailable  = "IDP_UNAVAILABLE"
	CodePartialFailure  = "PARTIAL_FAILURE"
	CodeJournalDisabled = "JOURNAL_DISABLED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// UserID — пользователь, требующий ручного восстановления (только PARTIAL_FAILURE).
	UserID string `json:"user_id,omitempty"`
	// CompletedSteps — шаги, уже применённые до ошибки (только PARTIAL_FAILURE).
	CompletedSteps []string `json:"completed_steps,omitempty"`
	// FailedStep — шаг, на котором операция остановилась.
	FailedStep string `json:"failed_step,omitempty"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	writeBody(w, statusCode, errorDetail{Code: code, Message: message})
}

func writeBody(w http.ResponseWriter, statusCode int, detail errorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{Error: detail})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden — 403 недостаточно прав или операция запрещена политикой.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// Conflict — 409 операция противоречит состоянию пользователя.
func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// UpstreamError — 502 Keycloak вернул неожиданный статус.
func UpstreamError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeUpstreamError, message)
}

// IDPUnavailable — 502 не удалось получить admin token Keycloak.
func IDPUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeIDPUnavailable, message)
}

// PartialFailure — 502 многошаговая операция остановилась после частичного выполнения.
func PartialFailure(w http.ResponseWriter, message, userID string, completed []string, failedStep string) {
	writeBody(w, http.StatusBadGateway, errorDetail{
		Code:           CodePartialFailure,
		Message:        message,
		UserID:         userID,
		CompletedSteps: completed,
		FailedStep:     failedStep,
	})
}

// JournalDisabled — 503 журнал операций не подключён к БД.
func JournalDisabled(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, CodeJournalDisabled, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
