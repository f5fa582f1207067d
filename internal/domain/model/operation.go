package model

import "time"

// OperationStatus — итог изменяющей операции.
type OperationStatus string

const (
	// OperationOK — все шаги выполнены.
	OperationOK OperationStatus = "ok"
	// OperationPartial — часть шагов выполнена, затем произошла ошибка.
	// Изменения в Keycloak не откатываются.
	OperationPartial OperationStatus = "partial"
	// OperationFailed — первый же шаг завершился ошибкой.
	OperationFailed OperationStatus = "failed"
	// OperationRejected — операция отклонена проверками до любых изменений.
	OperationRejected OperationStatus = "rejected"
)

// OperationReport — выполненные шаги многошаговой операции.
type OperationReport struct {
	// Operation — имя операции (create_user, promote_admin, ...)
	Operation string
	// UserID — целевой пользователь
	UserID string
	// Steps — выполненные шаги в порядке выполнения
	Steps []string
}

// OperationLogEntry — запись журнала операций.
// Хранится в таблице operation_log.
type OperationLogEntry struct {
	// ID — UUID записи
	ID string
	// Operation — имя операции
	Operation string
	// UserID — целевой пользователь (пустой, если ещё не создан)
	UserID string
	// Actor — username вызывающего
	Actor string
	// Status — итог операции
	Status OperationStatus
	// CompletedSteps — выполненные шаги
	CompletedSteps []string
	// FailedStep — шаг, на котором произошла ошибка
	FailedStep string
	// Error — текст ошибки
	Error string
	// StartedAt — время начала операции
	StartedAt time.Time
	// FinishedAt — время завершения операции
	FinishedAt time.Time
}

// OperationFilter — параметры выборки журнала.
type OperationFilter struct {
	// UserID — фильтр по целевому пользователю (пустой — все)
	UserID string
	Limit  int
	Offset int
}
