package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewRunbookCmd создаёт группу команд для управления runbook'ами.
func NewRunbookCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runbook",
		Short: "Manage runbooks",
	}

	cmd.AddCommand(
		newRunbookListCmd(clientFn, outputFn),
		newRunbookApplyCmd(clientFn, outputFn),
		newRunbookShowCmd(clientFn, outputFn),
		newRunbookDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func runbookRow(rb RunbookResponse) []string {
	schedule := "off"
	if rb.ScheduleEnabled {
		schedule = "on"
		if rb.NextDueAt != "" {
			schedule = "on (" + rb.NextDueAt + ")"
		}
	}
	return []string{rb.ID, rb.Name, rb.Owner, strconv.Itoa(rb.TaskCount), schedule, strings.Join(rb.Tags, ",")}
}

func newRunbookListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all runbooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runbooks, err := client.ListRunbooks()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "OWNER", "TASKS", "SCHEDULE", "TAGS"}
			rows := make([][]string, len(runbooks))
			for i, rb := range runbooks {
				rows[i] = runbookRow(rb)
			}

			out.Print(headers, rows, runbooks)
			return nil
		},
	}
}

func newRunbookApplyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Register or update a runbook from a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(configFile)
			if err != nil {
				return fmt.Errorf("failed to read config file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("config file is not valid JSON")
			}

			// ID нужен, чтобы решить create или update.
			var probe struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(data, &probe); err != nil || probe.ID == "" {
				return fmt.Errorf("config file must contain an \"id\" field")
			}

			runbook, err := client.UpdateRunbook(probe.ID, json.RawMessage(data))
			if err != nil {
				if !strings.HasPrefix(err.Error(), "NOT_FOUND") {
					return err
				}
				runbook, err = client.CreateRunbook(json.RawMessage(data))
				if err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Runbook created: %s", runbook.ID))
			} else {
				out.Success(fmt.Sprintf("Runbook updated: %s", runbook.ID))
			}

			out.Print(
				[]string{"ID", "NAME", "OWNER", "TASKS", "SCHEDULE", "TAGS"},
				[][]string{runbookRow(*runbook)},
				runbook,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config-file", "", "Path to runbook config JSON file (required)")
	cmd.MarkFlagRequired("config-file")

	return cmd
}

func newRunbookShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show full runbook configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			config, err := client.GetRunbook(args[0])
			if err != nil {
				return err
			}

			// Полная конфигурация всегда выводится в JSON.
			out.JSON(config)
			return nil
		},
	}
}

func newRunbookDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a runbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteRunbook(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Runbook deleted: %s", args[0]))
			return nil
		},
	}
}
