package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/testops/taskwatch/internal/api"
	"github.com/testops/taskwatch/internal/directory"
	"github.com/testops/taskwatch/internal/task"
)

// now is the clock used for relative times in command output.
// It can be overridden in tests.
var now = time.Now

var (
	tasksOutput  string
	tasksStatus  string
	tasksLimit   int
	showTests    bool
	showMetrics  bool
	resumeFollow bool
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List, inspect and resume tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent tasks",
	Long: `Lists the most recent tasks, newest first.

--status filters by lifecycle state. "processing" matches every state in
which the task is still running.

Example:
  taskwatch tasks list
  taskwatch tasks list --status failed -o json`,
	Args: cobra.NoArgs,
	RunE: runTasksList,
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task with its tests and agent metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksShow,
}

var tasksResumeCmd = &cobra.Command{
	Use:   "resume <task-id>",
	Short: "Resume a failed task from its last checkpoint",
	Long: `Asks the gateway to resume a failed task. Tasks that are still running
or already completed are rejected by the gateway.

With --follow, the task's event stream is printed until it finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasksResume,
}

func init() {
	tasksCmd.PersistentFlags().StringVarP(&tasksOutput, "output", "o", formatTable, "Output format (table, json, yaml)")

	tasksListCmd.Flags().StringVar(&tasksStatus, "status", "", "Only list tasks in this state (all, pending, processing, completed, failed, ...)")
	tasksListCmd.Flags().IntVarP(&tasksLimit, "limit", "n", directory.DefaultPageSize, "Maximum number of tasks to list")

	tasksShowCmd.Flags().BoolVar(&showTests, "tests", true, "Include generated tests")
	tasksShowCmd.Flags().BoolVar(&showMetrics, "metrics", true, "Include agent metrics")

	tasksResumeCmd.Flags().BoolVarP(&resumeFollow, "follow", "f", false, "Follow the task's event stream after resuming")

	tasksCmd.AddCommand(tasksListCmd, tasksShowCmd, tasksResumeCmd)
	rootCmd.AddCommand(tasksCmd)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runTasksList(cmd *cobra.Command, args []string) error {
	if err := validateFormat(tasksOutput); err != nil {
		return err
	}
	filter, err := task.ParseFilter(tasksStatus)
	if err != nil {
		return err
	}
	if tasksLimit < 1 || tasksLimit > 100 {
		return fmt.Errorf("--limit must be between 1 and 100")
	}

	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg, false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	dir := directory.New(newClient(cfg), tasksLimit)
	tasks, err := dir.Fetch(commandContext(cmd), filter)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	return writeOutput(cmd.OutOrStdout(), tasksOutput, tasks, func(w io.Writer) error {
		if len(tasks) == 0 {
			fmt.Fprintln(w, "No tasks found.")
			return nil
		}
		return writeTaskTable(w, tasks, now())
	})
}

func runTasksShow(cmd *cobra.Command, args []string) error {
	if err := validateFormat(tasksOutput); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg, false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	t, err := newClient(cfg).GetTask(commandContext(cmd), args[0], api.DetailOptions{
		IncludeTests:   showTests,
		IncludeMetrics: showMetrics,
	})
	if err != nil {
		return fmt.Errorf("failed to load task: %w", err)
	}

	return writeOutput(cmd.OutOrStdout(), tasksOutput, t, func(w io.Writer) error {
		return writeTaskDetail(w, t, now())
	})
}

func runTasksResume(cmd *cobra.Command, args []string) error {
	if err := validateFormat(tasksOutput); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}
	closeLog, err := setupLogging(cfg, false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := commandContext(cmd)
	resp, err := newClient(cfg).ResumeTask(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to resume task: %w", err)
	}

	err = writeOutput(cmd.OutOrStdout(), tasksOutput, resp, func(w io.Writer) error {
		fmt.Fprintf(w, "Resumed %s\t(%s)\n", resp.RequestID, dash(resp.Message))
		return nil
	})
	if err != nil || !resumeFollow {
		return err
	}
	return followTask(ctx, cmd, cfg, args[0])
}
