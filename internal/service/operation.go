// operation.go — учёт шагов изменяющей операции для журнала.
package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/bigkaa/authadmin/internal/domain/model"
)

type callerKey struct{}

// WithCaller сохраняет вызывающего в контексте (actor в журнале).
func WithCaller(ctx context.Context, c model.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext возвращает вызывающего из контекста.
func CallerFromContext(ctx context.Context) (model.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(model.Caller)
	return c, ok
}

// operation — одна изменяющая операция: выполненные шаги и итог.
type operation struct {
	ctx     context.Context
	journal *Journal
	entry   model.OperationLogEntry
}

func (s *AdminPolicyService) begin(ctx context.Context, name, userID string) *operation {
	actor := ""
	if c, ok := CallerFromContext(ctx); ok {
		actor = c.Username
		if actor == "" {
			actor = c.Subject
		}
	}
	return &operation{
		ctx:     ctx,
		journal: s.journal,
		entry: model.OperationLogEntry{
			Operation: name,
			UserID:    userID,
			Actor:     actor,
			StartedAt: time.Now().UTC(),
		},
	}
}

// step выполняет изменяющий шаг и при успехе добавляет его в выполненные.
// Ошибка после уже выполненных шагов оборачивается в *StepError.
func (op *operation) step(name string, fn func() error) error {
	if err := op.check(name, fn); err != nil {
		return err
	}
	op.entry.CompletedSteps = append(op.entry.CompletedSteps, name)
	return nil
}

// check выполняет читающий шаг; в выполненные он не попадает.
func (op *operation) check(name string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	op.entry.FailedStep = name
	if len(op.entry.CompletedSteps) == 0 {
		return err
	}
	return &StepError{
		Operation: op.entry.Operation,
		UserID:    op.entry.UserID,
		Completed: slices.Clone(op.entry.CompletedSteps),
		Step:      name,
		Err:       err,
	}
}

// reject фиксирует отказ до каких-либо изменений.
func (op *operation) reject(err error) error {
	op.finish(model.OperationRejected, err)
	return err
}

// done фиксирует итог операции и возвращает err без изменений.
func (op *operation) done(err error) error {
	var stepErr *StepError
	switch {
	case err == nil:
		op.finish(model.OperationOK, nil)
	case errors.As(err, &stepErr):
		op.finish(model.OperationPartial, err)
	default:
		op.finish(model.OperationFailed, err)
	}
	return err
}

func (op *operation) report() *model.OperationReport {
	return &model.OperationReport{
		Operation: op.entry.Operation,
		UserID:    op.entry.UserID,
		Steps:     slices.Clone(op.entry.CompletedSteps),
	}
}

func (op *operation) finish(status model.OperationStatus, err error) {
	op.entry.Status = status
	op.entry.FinishedAt = time.Now().UTC()
	if err != nil {
		op.entry.Error = err.Error()
	}
	if op.journal != nil {
		op.journal.Record(op.ctx, &op.entry)
	}
}
