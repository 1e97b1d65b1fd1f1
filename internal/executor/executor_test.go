package executor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/notify"
)

func TestAPICallExecutor_Success(t *testing.T) {
	var gotPath, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotHeader = r.Header.Get("X-Token")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	exec := &APICallExecutor{}
	res, err := exec.Execute(context.Background(), &Request{
		TaskID: "call",
		Kind:   domain.TaskKindAPICall,
		Config: map[string]any{
			"url":     srv.URL + "/v1/ping",
			"headers": map[string]any{"X-Token": "secret"},
			"params":  map[string]any{"env": "prod"},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if gotPath != "/v1/ping?env=prod" {
		t.Errorf("request path = %q, want /v1/ping?env=prod", gotPath)
	}
	if gotHeader != "secret" {
		t.Errorf("X-Token header = %q, want secret", gotHeader)
	}
	if res.Outputs["status_code"] != http.StatusOK {
		t.Errorf("status_code = %v, want 200", res.Outputs["status_code"])
	}

	body, ok := res.Outputs["body"].(map[string]any)
	if !ok || body["ok"] != true {
		t.Errorf("body = %v, want parsed JSON with ok=true", res.Outputs["body"])
	}
}

func TestAPICallExecutor_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	exec := &APICallExecutor{}
	_, err := exec.Execute(context.Background(), &Request{
		Config: map[string]any{"url": srv.URL},
	})
	if !errors.Is(err, ErrAPICall) {
		t.Errorf("Execute() error = %v, want ErrAPICall", err)
	}
}

func TestAPICallExecutor_ExpectedStatusOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	exec := &APICallExecutor{}
	_, err := exec.Execute(context.Background(), &Request{
		Config: map[string]any{
			"url":             srv.URL,
			"method":          "POST",
			"expected_status": 201,
		},
	})
	if err != nil {
		t.Errorf("Execute() error = %v, want nil for expected_status=201", err)
	}
}

func TestAPICallExecutor_MissingURL(t *testing.T) {
	exec := &APICallExecutor{}
	_, err := exec.Execute(context.Background(), &Request{Config: map[string]any{}})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Execute() error = %v, want ErrInvalidConfig", err)
	}
}

func TestWaitExecutor_RespectsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	exec := &WaitExecutor{}
	start := time.Now()
	_, err := exec.Execute(ctx, &Request{
		Config: map[string]any{"seconds": 60},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("wait did not stop on cancel")
	}
}

func TestWaitExecutor_ZeroSeconds(t *testing.T) {
	exec := &WaitExecutor{}
	res, err := exec.Execute(context.Background(), &Request{
		Config: map[string]any{"seconds": 0},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Outputs["waited_seconds"] != 0 {
		t.Errorf("waited_seconds = %v, want 0", res.Outputs["waited_seconds"])
	}
}

func TestConditionalExecutor(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		vars    map[string]string
		wantErr error
	}{
		{
			name:   "equals matches",
			config: map[string]any{"variable": "env", "value": "prod"},
			vars:   map[string]string{"env": "prod"},
		},
		{
			name:    "equals mismatch",
			config:  map[string]any{"variable": "env", "value": "prod"},
			vars:    map[string]string{"env": "staging"},
			wantErr: ErrConditionNotMet,
		},
		{
			name:   "not_equals",
			config: map[string]any{"variable": "env", "operator": "not_equals", "value": "prod"},
			vars:   map[string]string{"env": "staging"},
		},
		{
			name:   "contains",
			config: map[string]any{"variable": "region", "operator": "contains", "value": "eu"},
			vars:   map[string]string{"region": "eu-west-1"},
		},
		{
			name:   "exists",
			config: map[string]any{"variable": "flag", "operator": "exists"},
			vars:   map[string]string{"flag": ""},
		},
		{
			name:    "missing variable",
			config:  map[string]any{"variable": "flag", "operator": "exists"},
			vars:    map[string]string{},
			wantErr: ErrConditionNotMet,
		},
		{
			name:    "unknown operator",
			config:  map[string]any{"variable": "env", "operator": "regex", "value": "x"},
			vars:    map[string]string{"env": "prod"},
			wantErr: ErrInvalidConfig,
		},
	}

	exec := &ConditionalExecutor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exec.Execute(context.Background(), &Request{
				Config:    tt.config,
				Variables: tt.vars,
			})
			if tt.wantErr == nil && err != nil {
				t.Errorf("Execute() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Execute() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_UnknownKind(t *testing.T) {
	r := DefaultRegistry(Deps{Notifier: notify.NopNotifier{}})

	_, err := r.Get(domain.TaskKindFileOperation)
	if !errors.Is(err, ErrUnknownTaskKind) {
		t.Errorf("Get(file_operation) error = %v, want ErrUnknownTaskKind", err)
	}
}

func TestRegistry_UIAutomationRequiresDriver(t *testing.T) {
	r := DefaultRegistry(Deps{Notifier: notify.NopNotifier{}})
	if _, err := r.Get(domain.TaskKindUIAutomation); !errors.Is(err, ErrUnknownTaskKind) {
		t.Errorf("Get(ui_automation) without driver error = %v, want ErrUnknownTaskKind", err)
	}

	r = DefaultRegistry(Deps{Notifier: notify.NopNotifier{}, Browser: fakeDriver{}})
	if _, err := r.Get(domain.TaskKindUIAutomation); err != nil {
		t.Errorf("Get(ui_automation) with driver error = %v", err)
	}
}

type fakeDriver struct{}

func (fakeDriver) Run(context.Context, *BrowserJob) (*BrowserResult, error) {
	return &BrowserResult{}, nil
}

func TestNotificationExecutor(t *testing.T) {
	captured := &capturingNotifier{}
	exec := &NotificationExecutor{Notifier: captured}

	_, err := exec.Execute(context.Background(), &Request{
		TaskID: "notify-team",
		Config: map[string]any{"message": "monthly close started"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(captured.events) != 1 {
		t.Fatalf("got %d events, want 1", len(captured.events))
	}
	if captured.events[0].Type != notify.EventCustom {
		t.Errorf("event type = %s, want %s", captured.events[0].Type, notify.EventCustom)
	}
	if captured.events[0].Message != "monthly close started" {
		t.Errorf("event message = %q", captured.events[0].Message)
	}
}

type capturingNotifier struct {
	events []notify.Event
}

func (c *capturingNotifier) Notify(_ context.Context, event notify.Event) {
	c.events = append(c.events, event)
}
