package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api, CLI не импортирует internal/api) ---

// RunbookResponse — краткое представление runbook из API.
type RunbookResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Version          string   `json:"version,omitempty"`
	Owner            string   `json:"owner,omitempty"`
	Team             string   `json:"team,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	TaskCount        int      `json:"task_count"`
	ScheduleEnabled  bool     `json:"schedule_enabled"`
	NextDueAt        string   `json:"next_due_at,omitempty"`
	GlobalTimeoutMin int      `json:"global_timeout_min,omitempty"`
}

// TaskResponse — состояние задачи внутри run.
type TaskResponse struct {
	TaskID     string         `json:"task_id"`
	Name       string         `json:"name,omitempty"`
	Kind       string         `json:"kind"`
	Status     string         `json:"status"`
	Attempts   int            `json:"attempts"`
	StartedAt  string         `json:"started_at,omitempty"`
	FinishedAt string         `json:"finished_at,omitempty"`
	Error      string         `json:"error,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
}

// RunResponse — run из API: снимок активного или архивная запись.
type RunResponse struct {
	RunID          string            `json:"run_id"`
	RunbookID      string            `json:"runbook_id"`
	RunbookName    string            `json:"runbook_name,omitempty"`
	State          string            `json:"state"`
	TriggeredBy    string            `json:"triggered_by"`
	Progress       float64           `json:"progress"`
	TotalTasks     int               `json:"total_tasks"`
	CompletedTasks int               `json:"completed_tasks"`
	FailedTasks    int               `json:"failed_tasks"`
	SkippedTasks   int               `json:"skipped_tasks"`
	StartedAt      string            `json:"started_at,omitempty"`
	FinishedAt     string            `json:"finished_at,omitempty"`
	Error          string            `json:"error,omitempty"`
	Variables      map[string]string `json:"variables,omitempty"`
	Tasks          []TaskResponse    `json:"tasks,omitempty"`
}

// --- Request types ---

// StartRunRequest — запуск run с переменными.
type StartRunRequest struct {
	Variables   map[string]string `json:"variables,omitempty"`
	TriggeredBy string            `json:"triggered_by,omitempty"`
}

// ListRunsOpts — параметры фильтрации архива runs.
type ListRunsOpts struct {
	RunbookID string
	State     string
	Limit     int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Conductor API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Runbooks ---

// ListRunbooks возвращает все зарегистрированные runbook'и.
func (c *Client) ListRunbooks() ([]RunbookResponse, error) {
	var runbooks []RunbookResponse
	err := c.list("/api/v1/runbooks", nil, &runbooks)
	return runbooks, err
}

// CreateRunbook регистрирует runbook из JSON-конфигурации.
func (c *Client) CreateRunbook(config json.RawMessage) (*RunbookResponse, error) {
	var runbook RunbookResponse
	err := c.doData(http.MethodPost, "/api/v1/runbooks", config, &runbook)
	return &runbook, err
}

// GetRunbook возвращает полную конфигурацию runbook.
func (c *Client) GetRunbook(id string) (map[string]any, error) {
	var config map[string]any
	err := c.get("/api/v1/runbooks/"+id, &config)
	return config, err
}

// UpdateRunbook перезаписывает конфигурацию runbook.
func (c *Client) UpdateRunbook(id string, config json.RawMessage) (*RunbookResponse, error) {
	var runbook RunbookResponse
	err := c.doData(http.MethodPut, "/api/v1/runbooks/"+id, config, &runbook)
	return &runbook, err
}

// DeleteRunbook удаляет runbook.
func (c *Client) DeleteRunbook(id string) error {
	return c.delete("/api/v1/runbooks/" + id)
}

// --- Runs ---

// StartRun запускает runbook с переменными.
func (c *Client) StartRun(runbookID string, req StartRunRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runbooks/"+runbookID+"/runs", req, &run)
	return &run, err
}

// ListRuns возвращает архив runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.RunbookID != "" {
		params.Set("runbook_id", opts.RunbookID)
	}
	if opts.State != "" {
		params.Set("state", opts.State)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// ListActiveRuns возвращает выполняющиеся runs.
func (c *Client) ListActiveRuns() ([]RunResponse, error) {
	var runs []RunResponse
	err := c.list("/api/v1/runs/active", nil, &runs)
	return runs, err
}

// GetRun возвращает run по ID с состоянием задач.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+id, &run)
	return &run, err
}

// CancelRun отменяет run.
func (c *Client) CancelRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+id+"/cancel", nil, &run)
	return &run, err
}

// PauseRun приостанавливает run.
func (c *Client) PauseRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+id+"/pause", nil, &run)
	return &run, err
}

// ResumeRun возобновляет приостановленный run.
func (c *Client) ResumeRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+id+"/resume", nil, &run)
	return &run, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
