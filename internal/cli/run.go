package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage runs",
	}

	cmd.AddCommand(
		newRunListCmd(clientFn, outputFn),
		newRunActiveCmd(clientFn, outputFn),
		newRunStartCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunCancelCmd(clientFn, outputFn),
		newRunPauseCmd(clientFn, outputFn),
		newRunResumeCmd(clientFn, outputFn),
	)

	return cmd
}

func runRow(r RunResponse) []string {
	// Progress в API уже в процентах (0–100).
	progress := fmt.Sprintf("%.0f%%", r.Progress)
	counters := fmt.Sprintf("%d/%d", r.CompletedTasks, r.TotalTasks)
	return []string{r.RunID, r.RunbookID, r.State, r.TriggeredBy, progress, counters, r.StartedAt}
}

var runHeaders = []string{"RUN_ID", "RUNBOOK", "STATE", "TRIGGER", "PROGRESS", "DONE", "STARTED"}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var runbookID string
	var state string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List finished runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(ListRunsOpts{
				RunbookID: runbookID,
				State:     state,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = runRow(r)
			}

			out.Print(runHeaders, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&runbookID, "runbook-id", "", "Filter by runbook ID")
	cmd.Flags().StringVar(&state, "state", "", "Filter by state (completed, failed, cancelled, failed_to_start)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunActiveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "List currently executing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListActiveRuns()
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = runRow(r)
			}

			out.Print(runHeaders, rows, runs)
			return nil
		},
	}
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "start RUNBOOK_ID",
		Short: "Start a new run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := StartRunRequest{TriggeredBy: "manual"}
			if len(vars) > 0 {
				req.Variables = make(map[string]string)
				for _, kv := range vars {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid variable format %q, expected KEY=VALUE", kv)
					}
					req.Variables[parts[0]] = parts[1]
				}
			}

			run, err := client.StartRun(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run started: %s", run.RunID))
			out.Print(runHeaders, [][]string{runRow(*run)}, run)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&vars, "var", nil, "Variable as KEY=VALUE (repeatable)")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details with per-task status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			pairs := [][2]string{
				{"Run", run.RunID},
				{"Runbook", run.RunbookID},
				{"State", run.State},
				{"Triggered by", run.TriggeredBy},
				{"Progress", fmt.Sprintf("%.0f%%", run.Progress)},
				{"Completed", strconv.Itoa(run.CompletedTasks)},
				{"Failed", strconv.Itoa(run.FailedTasks)},
				{"Skipped", strconv.Itoa(run.SkippedTasks)},
			}
			if run.Error != "" {
				pairs = append(pairs, [2]string{"Error", run.Error})
			}
			out.Details(pairs, run)

			if !out.jsonMode && len(run.Tasks) > 0 {
				fmt.Println()
				headers := []string{"TASK", "KIND", "STATUS", "ATTEMPTS", "ERROR"}
				rows := make([][]string, len(run.Tasks))
				for i, t := range run.Tasks {
					rows[i] = []string{t.TaskID, t.Kind, t.Status, strconv.Itoa(t.Attempts), t.Error}
				}
				out.Table(headers, rows)
			}
			return nil
		},
	}
}

func newRunCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.CancelRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run cancelled: %s", run.RunID))
			return nil
		},
	}
}

func newRunPauseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "pause ID",
		Short: "Pause a run before its next batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.PauseRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run paused: %s", run.RunID))
			return nil
		},
	}
}

func newRunResumeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "resume ID",
		Short: "Resume a paused run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.ResumeRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run resumed: %s", run.RunID))
			return nil
		},
	}
}
