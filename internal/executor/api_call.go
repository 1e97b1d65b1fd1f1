package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultAPITimeout = 30 * time.Second

// APICallExecutor — executor для задачи типа "api_call".
//
// Выполняет HTTP-запрос на основе конфигурации задачи.
//
// Config:
//   - method (string): HTTP-метод (GET, POST, PUT, DELETE). Default: GET
//   - url (string): URL для запроса (обязательно)
//   - headers (map[string]any): HTTP-заголовки
//   - params (map[string]any): query-параметры
//   - body (any): тело запроса (сериализуется в JSON)
//   - expected_status (number): ожидаемый HTTP-код. Default: 200
//   - timeout_sec (number): таймаут запроса в секундах. Default: 30
//
// Outputs:
//   - status_code (int): HTTP-код ответа
//   - headers (map[string]string): заголовки ответа
//   - body (any): тело ответа (JSON или строка)
type APICallExecutor struct {
	// Client — HTTP-клиент; nil означает клиент по умолчанию.
	Client *http.Client
}

// Execute выполняет HTTP-запрос.
func (e *APICallExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	method := getString(req.Config, "method", http.MethodGet)
	rawURL := getString(req.Config, "url", "")
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}

	rawURL, err := appendParams(rawURL, req.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	timeout := defaultAPITimeout
	if sec := getInt(req.Config, "timeout_sec", 0); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Подготавливаем body
	var bodyReader io.Reader
	if body, ok := req.Config["body"]; ok && body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal body: %v", ErrInvalidConfig, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrAPICall, err)
	}

	setHeaders(httpReq, req.Config)

	// Content-Type по умолчанию для запросов с body
	if bodyReader != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPICall, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrAPICall, err)
	}

	outputs := buildOutputs(resp, respBody)

	expected := getInt(req.Config, "expected_status", http.StatusOK)
	if resp.StatusCode != expected {
		return nil, fmt.Errorf("%w: expected status %d, got %d: %s",
			ErrAPICall, expected, resp.StatusCode, truncate(string(respBody), 200))
	}

	return &Result{Outputs: outputs}, nil
}

// appendParams добавляет query-параметры из config к URL.
func appendParams(rawURL string, config map[string]any) (string, error) {
	params, ok := config["params"].(map[string]any)
	if !ok || len(params) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	q := u.Query()
	for key, val := range params {
		q.Set(key, fmt.Sprint(val))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// buildOutputs формирует outputs из HTTP-ответа.
func buildOutputs(resp *http.Response, body []byte) map[string]any {
	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	// Пробуем распарсить body как JSON, иначе строка
	var parsedBody any
	if err := json.Unmarshal(body, &parsedBody); err != nil {
		parsedBody = string(body)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        parsedBody,
	}
}

// setHeaders устанавливает заголовки из config.
func setHeaders(req *http.Request, config map[string]any) {
	headers, ok := config["headers"]
	if !ok || headers == nil {
		return
	}

	switch h := headers.(type) {
	case map[string]any:
		for key, val := range h {
			if s, ok := val.(string); ok {
				req.Header.Set(key, s)
			}
		}
	case map[string]string:
		for key, val := range h {
			req.Header.Set(key, val)
		}
	}
}
