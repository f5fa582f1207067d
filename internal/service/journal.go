// journal.go — журнал изменяющих операций.
// Каждая запись пишется в slog; при подключённой БД — ещё и в operation_log.
// Ошибка записи в БД не влияет на результат операции.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/authadmin/internal/domain/model"
	"github.com/bigkaa/authadmin/internal/repository"
)

// operationsTotal — изменяющие операции по имени и итогу.
var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aa_operations_total",
		Help: "Количество изменяющих операций над пользователями",
	},
	[]string{"operation", "status"},
)

// Journal — журнал операций.
type Journal struct {
	repo   repository.OperationLogRepository // nil — только лог
	logger *slog.Logger
}

// NewJournal создаёт журнал. repo может быть nil.
func NewJournal(repo repository.OperationLogRepository, logger *slog.Logger) *Journal {
	return &Journal{
		repo:   repo,
		logger: logger.With(slog.String("component", "operation_journal")),
	}
}

// Record фиксирует завершённую операцию.
func (j *Journal) Record(ctx context.Context, e *model.OperationLogEntry) {
	operationsTotal.WithLabelValues(e.Operation, string(e.Status)).Inc()

	attrs := []any{
		slog.String("operation", e.Operation),
		slog.String("user_id", e.UserID),
		slog.String("actor", e.Actor),
		slog.String("status", string(e.Status)),
		slog.Any("completed_steps", e.CompletedSteps),
		slog.Duration("duration", e.FinishedAt.Sub(e.StartedAt)),
	}
	switch e.Status {
	case model.OperationPartial:
		attrs = append(attrs, slog.String("failed_step", e.FailedStep), slog.String("error", e.Error))
		j.logger.Error("Операция выполнена частично, требуется ручная проверка", attrs...)
	case model.OperationFailed:
		attrs = append(attrs, slog.String("failed_step", e.FailedStep), slog.String("error", e.Error))
		j.logger.Warn("Операция не выполнена", attrs...)
	case model.OperationRejected:
		attrs = append(attrs, slog.String("error", e.Error))
		j.logger.Info("Операция отклонена", attrs...)
	default:
		j.logger.Info("Операция выполнена", attrs...)
	}

	if !j.Enabled() {
		return
	}
	// Запись в журнал не должна зависеть от отмены исходного запроса
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := j.repo.Insert(dbCtx, e); err != nil {
		j.logger.Warn("Не удалось сохранить запись журнала",
			slog.String("operation", e.Operation),
			slog.String("error", err.Error()),
		)
	}
}

// Enabled сообщает, сохраняется ли журнал в БД.
func (j *Journal) Enabled() bool {
	return j.repo != nil
}

// List возвращает записи журнала.
func (j *Journal) List(ctx context.Context, f model.OperationFilter) ([]*model.OperationLogEntry, int, error) {
	if !j.Enabled() {
		return nil, 0, ErrJournalDisabled
	}
	entries, total, err := j.repo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("получение журнала операций: %w", err)
	}
	return entries, total, nil
}

// Get возвращает запись журнала по ID.
func (j *Journal) Get(ctx context.Context, id string) (*model.OperationLogEntry, error) {
	if !j.Enabled() {
		return nil, ErrJournalDisabled
	}
	e, err := j.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: запись журнала %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("получение записи журнала: %w", err)
	}
	return e, nil
}
