package executor

import (
	"context"
	"fmt"
)

// BrowserStep — один шаг браузерного сценария.
type BrowserStep struct {
	// Action — navigate, click, fill, wait_for, screenshot.
	Action string `json:"action"`

	// Selector — CSS-селектор элемента (для click, fill, wait_for).
	Selector string `json:"selector,omitempty"`

	// Value — значение для fill или URL для navigate.
	Value string `json:"value,omitempty"`
}

// BrowserJob — сценарий для браузерного драйвера.
type BrowserJob struct {
	URL      string
	Browser  string
	Headless bool
	Steps    []BrowserStep
}

// BrowserResult — результат выполнения сценария.
type BrowserResult struct {
	// StepsDone — число выполненных шагов.
	StepsDone int

	// Screenshots — пути к сохранённым скриншотам.
	Screenshots []string
}

// BrowserDriver — порт к внешней браузерной автоматизации.
// Реализация подключается при сборке сервера; без неё задачи
// типа ui_automation не выполняются.
type BrowserDriver interface {
	Run(ctx context.Context, job *BrowserJob) (*BrowserResult, error)
}

// UIAutomationExecutor — executor для задачи типа "ui_automation".
//
// Config:
//   - url (string): стартовый URL (обязательно)
//   - browser (string): chromium | firefox. Default: chromium
//   - headless (bool): запуск без окна. Default: true
//   - steps (list): шаги сценария {action, selector, value}
//
// Outputs:
//   - steps_done (int): число выполненных шагов
//   - screenshots (list): пути к скриншотам
type UIAutomationExecutor struct {
	Driver BrowserDriver
}

// Execute выполняет браузерный сценарий.
func (e *UIAutomationExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	if e.Driver == nil {
		return nil, ErrNoBrowserDriver
	}

	url := getString(req.Config, "url", "")
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}

	job := &BrowserJob{
		URL:      url,
		Browser:  getString(req.Config, "browser", "chromium"),
		Headless: getBool(req.Config, "headless", true),
		Steps:    parseBrowserSteps(req.Config),
	}

	res, err := e.Driver.Run(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("browser job: %w", err)
	}

	return &Result{
		Outputs: map[string]any{
			"steps_done":  res.StepsDone,
			"screenshots": res.Screenshots,
		},
	}, nil
}

// parseBrowserSteps извлекает шаги сценария из config.
func parseBrowserSteps(config map[string]any) []BrowserStep {
	raw := getSlice(config, "steps")
	steps := make([]BrowserStep, 0, len(raw))

	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		steps = append(steps, BrowserStep{
			Action:   getString(m, "action", ""),
			Selector: getString(m, "selector", ""),
			Value:    getString(m, "value", ""),
		})
	}

	return steps
}
