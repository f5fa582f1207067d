package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/authadmin/internal/domain/model"
)

// OperationLogRepository — журнал изменяющих операций (таблица operation_log).
type OperationLogRepository interface {
	// Insert сохраняет запись. Пустой ID заполняется новым UUID.
	Insert(ctx context.Context, e *model.OperationLogEntry) error
	// GetByID возвращает запись по ID.
	GetByID(ctx context.Context, id string) (*model.OperationLogEntry, error)
	// List возвращает записи (новые первыми) и общее количество по фильтру.
	List(ctx context.Context, f model.OperationFilter) ([]*model.OperationLogEntry, int, error)
}

// operationLogRepo — реализация OperationLogRepository.
type operationLogRepo struct {
	db DBTX
}

// NewOperationLogRepository создаёт репозиторий журнала операций.
func NewOperationLogRepository(db DBTX) OperationLogRepository {
	return &operationLogRepo{db: db}
}

const opColumns = `id, operation, user_id, actor, status, completed_steps, failed_step, error, started_at, finished_at`

func (r *operationLogRepo) Insert(ctx context.Context, e *model.OperationLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	steps := e.CompletedSteps
	if steps == nil {
		steps = []string{}
	}

	query := fmt.Sprintf(`
		INSERT INTO operation_log (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, opColumns)

	_, err := r.db.Exec(ctx, query,
		e.ID, e.Operation, e.UserID, e.Actor, string(e.Status),
		steps, e.FailedStep, e.Error, e.StartedAt, e.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал операций: %w", err)
	}
	return nil
}

func (r *operationLogRepo) GetByID(ctx context.Context, id string) (*model.OperationLogEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM operation_log WHERE id = $1`, opColumns)

	e, err := scanOperation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи журнала: %w", err)
	}
	return e, nil
}

func (r *operationLogRepo) List(ctx context.Context, f model.OperationFilter) ([]*model.OperationLogEntry, int, error) {
	// Пустой user_id отключает фильтр
	const where = `WHERE ($1 = '' OR user_id = $1)`

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM operation_log `+where, f.UserID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта записей журнала: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM operation_log
		%s
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`, opColumns, where)

	rows, err := r.db.Query(ctx, query, f.UserID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения журнала операций: %w", err)
	}
	defer rows.Close()

	var result []*model.OperationLogEntry
	for rows.Next() {
		e, err := scanOperation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		result = append(result, e)
	}
	return result, total, rows.Err()
}

// scanOperation читает одну строку operation_log.
func scanOperation(row pgx.Row) (*model.OperationLogEntry, error) {
	e := &model.OperationLogEntry{}
	var status string
	err := row.Scan(
		&e.ID, &e.Operation, &e.UserID, &e.Actor, &status,
		&e.CompletedSteps, &e.FailedStep, &e.Error, &e.StartedAt, &e.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = model.OperationStatus(status)
	return e, nil
}
