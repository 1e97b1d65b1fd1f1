package engine

import (
	"testing"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]string{"env": "prod", "region": "eu-west-1"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single", in: "deploy to ${env}", want: "deploy to prod"},
		{name: "multiple", in: "${env}/${region}", want: "prod/eu-west-1"},
		{name: "repeated", in: "${env}-${env}", want: "prod-prod"},
		{name: "unknown stays", in: "value ${missing}", want: "value ${missing}"},
		{name: "no placeholders", in: "plain text", want: "plain text"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Substitute(tt.in, vars); got != tt.want {
				t.Errorf("Substitute(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSubstituteConfig_Nested(t *testing.T) {
	vars := map[string]string{"host": "db.internal", "env": "prod"}

	config := map[string]any{
		"url": "https://${host}/query",
		"headers": map[string]any{
			"X-Env": "${env}",
		},
		"tags":  []any{"${env}", "static", 42},
		"count": 10,
		"flag":  true,
	}

	got := SubstituteConfig(config, vars)

	if got["url"] != "https://db.internal/query" {
		t.Errorf("url = %v", got["url"])
	}
	headers := got["headers"].(map[string]any)
	if headers["X-Env"] != "prod" {
		t.Errorf("headers.X-Env = %v", headers["X-Env"])
	}
	tags := got["tags"].([]any)
	if tags[0] != "prod" || tags[1] != "static" || tags[2] != 42 {
		t.Errorf("tags = %v", tags)
	}
	if got["count"] != 10 || got["flag"] != true {
		t.Errorf("non-string values changed: count=%v flag=%v", got["count"], got["flag"])
	}
}

func TestSubstituteConfig_DoesNotMutateOriginal(t *testing.T) {
	config := map[string]any{
		"url":    "${host}",
		"nested": map[string]any{"key": "${host}"},
	}

	SubstituteConfig(config, map[string]string{"host": "example.com"})

	if config["url"] != "${host}" {
		t.Errorf("original config mutated: url = %v", config["url"])
	}
	nested := config["nested"].(map[string]any)
	if nested["key"] != "${host}" {
		t.Errorf("original nested config mutated: key = %v", nested["key"])
	}
}

func TestSubstituteConfig_Nil(t *testing.T) {
	if got := SubstituteConfig(nil, map[string]string{"a": "b"}); got != nil {
		t.Errorf("SubstituteConfig(nil) = %v, want nil", got)
	}
}
