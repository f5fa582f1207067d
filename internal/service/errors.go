// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — операция запрещена правилами защиты администраторов.
	ErrForbidden = errors.New("операция запрещена")
	// ErrConflict — операция противоречит текущему состоянию пользователя.
	ErrConflict = errors.New("конфликт")
	// ErrAlreadyAdmin — пользователь уже администратор (мягкий конфликт).
	ErrAlreadyAdmin = fmt.Errorf("%w: пользователь уже администратор", ErrConflict)
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrJournalDisabled — журнал операций не подключён к БД.
	ErrJournalDisabled = errors.New("журнал операций отключён (AA_DB_HOST не задан)")
)

// StepError — ошибка на шаге нетранзакционной операции после того,
// как часть шагов уже применена в Keycloak. Отката нет: выполненные
// шаги перечислены в Completed для ручного восстановления.
// UserID — пользователь операции; для CreateUser это ID уже созданного пользователя.
type StepError struct {
	Operation string
	UserID    string
	Completed []string
	Step      string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: шаг %s не выполнен (выполнены: %s): %v",
		e.Operation, e.Step, strings.Join(e.Completed, ", "), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
