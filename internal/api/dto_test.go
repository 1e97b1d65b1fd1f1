package api

import (
	"encoding/json"
	"testing"
)

func TestStartRunRequest_Trigger(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "explicit", body: `{"triggered_by":"manual"}`, want: "manual"},
		{name: "default", body: `{"variables":{"env":"prod"}}`, want: "api"},
		{name: "empty body", body: `{}`, want: "api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req StartRunRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got := req.trigger(); got != tt.want {
				t.Errorf("trigger() = %q, want %q", got, tt.want)
			}
		})
	}
}
