package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// defaultCompensationTimeout ограничивает время отката, если исходный контекст уже отменён.
const defaultCompensationTimeout = 5 * time.Second

// Step — локальный шаг единицы работы и его компенсация.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError возвращается из Execute, если один из шагов не выполнился.
type StepError struct {
	// Step содержит имя упавшего шага.
	Step string
	// Index — порядковый номер упавшего шага (с нуля).
	Index int
	Err   error
	// CompensationErrs собирает ошибки компенсаций уже выполненных шагов.
	CompensationErrs []error
}

func (e *StepError) Error() string {
	if len(e.CompensationErrs) == 0 {
		return fmt.Sprintf("saga step %q failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("saga step %q failed: %v; compensation failed: %v", e.Step, e.Err, errors.Join(e.CompensationErrs...))
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Compensated сообщает, что все выполненные шаги откатаны.
func (e *StepError) Compensated() bool {
	return len(e.CompensationErrs) == 0
}

// Transaction выполняет шаги по порядку и при сбое компенсирует выполненные в обратном порядке.
// Не потокобезопасна: один экземпляр на одну операцию.
type Transaction struct {
	name                string
	steps               []Step
	compensationTimeout time.Duration
	logger              *log.Entry
}

// New создаёт пустую транзакцию.
func New(name string, logger *log.Entry) *Transaction {
	if logger == nil {
		logger = log.WithField("component", "saga")
	}
	return &Transaction{
		name:                name,
		compensationTimeout: defaultCompensationTimeout,
		logger:              logger.WithField("saga", name),
	}
}

// WithCompensationTimeout переопределяет таймаут отката.
func (t *Transaction) WithCompensationTimeout(timeout time.Duration) *Transaction {
	if timeout > 0 {
		t.compensationTimeout = timeout
	}
	return t
}

// AddStep добавляет шаг. compensate может быть nil.
func (t *Transaction) AddStep(name string, action, compensate func(ctx context.Context) error) *Transaction {
	t.steps = append(t.steps, Step{Name: name, Action: action, Compensate: compensate})
	return t
}

// Len возвращает число шагов.
func (t *Transaction) Len() int {
	return len(t.steps)
}

// Execute выполняет шаги. При ошибке возвращает *StepError после попытки компенсации.
func (t *Transaction) Execute(ctx context.Context) error {
	for i, step := range t.steps {
		if err := ctx.Err(); err != nil {
			return t.fail(ctx, i, step.Name, err)
		}
		if step.Action == nil {
			continue
		}
		if err := step.Action(ctx); err != nil {
			return t.fail(ctx, i, step.Name, err)
		}
	}
	return nil
}

func (t *Transaction) fail(ctx context.Context, index int, name string, cause error) error {
	t.logger.WithFields(log.Fields{
		"step":  name,
		"index": index,
		"error": cause,
	}).Warn("Saga step failed, compensating")

	stepErr := &StepError{Step: name, Index: index, Err: cause}
	stepErr.CompensationErrs = t.compensate(ctx, index)
	if !stepErr.Compensated() {
		t.logger.WithFields(log.Fields{
			"step":     name,
			"failures": len(stepErr.CompensationErrs),
		}).Error("Saga compensation incomplete")
	}
	return stepErr
}

// compensate откатывает шаги [0, failed) в обратном порядке.
// Компенсация не прерывается на ошибке: каждый шаг получает свою попытку.
func (t *Transaction) compensate(ctx context.Context, failed int) []error {
	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.compensationTimeout)
	defer cancel()

	var errs []error
	for i := failed - 1; i >= 0; i-- {
		step := t.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(compCtx); err != nil {
			t.logger.WithFields(log.Fields{
				"step":  step.Name,
				"error": err,
			}).Error("Saga compensation step failed")
			errs = append(errs, fmt.Errorf("compensate %s: %w", step.Name, err))
		}
	}
	return errs
}
