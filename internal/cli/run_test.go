package cli

import (
	"testing"
)

func TestRunRow_ProgressAlreadyInPercent(t *testing.T) {
	tests := []struct {
		name     string
		progress float64
		want     string
	}{
		{name: "finished", progress: 100, want: "100%"},
		{name: "half", progress: 50, want: "50%"},
		{name: "empty", progress: 0, want: "0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := runRow(RunResponse{
				RunID:     "r1",
				RunbookID: "rb1",
				Progress:  tt.progress,
			})
			// Колонка PROGRESS — пятая в runHeaders.
			if got := row[4]; got != tt.want {
				t.Errorf("progress column = %q, want %q", got, tt.want)
			}
		})
	}
}
