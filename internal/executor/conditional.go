package executor

import (
	"context"
	"fmt"
	"strings"
)

// ConditionalExecutor — executor для задачи типа "conditional".
//
// Сравнивает переменную run с ожидаемым значением. Невыполненное
// условие — провал задачи: зависимые задачи с skip_on_failure
// будут пропущены, что и даёт ветвление runbook'а.
//
// Config:
//   - variable (string): имя переменной run (обязательно)
//   - operator (string): equals | not_equals | contains | exists. Default: equals
//   - value (string): ожидаемое значение (не нужен для exists)
//
// Outputs:
//   - matched (bool): результат проверки
//   - actual (string): фактическое значение переменной
type ConditionalExecutor struct{}

// Execute проверяет условие.
func (e *ConditionalExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	variable := getString(req.Config, "variable", "")
	if variable == "" {
		return nil, fmt.Errorf("%w: variable is required", ErrInvalidConfig)
	}

	operator := getString(req.Config, "operator", "equals")
	expected := getString(req.Config, "value", "")

	actual, exists := req.Variables[variable]

	var matched bool
	switch operator {
	case "equals":
		matched = exists && actual == expected
	case "not_equals":
		matched = exists && actual != expected
	case "contains":
		matched = exists && strings.Contains(actual, expected)
	case "exists":
		matched = exists
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidConfig, operator)
	}

	outputs := map[string]any{
		"matched": matched,
		"actual":  actual,
	}

	if !matched {
		return nil, fmt.Errorf("%w: %s %s %q (actual %q)",
			ErrConditionNotMet, variable, operator, expected, actual)
	}

	return &Result{Outputs: outputs}, nil
}
