package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/acord-review/backend/internal/api"
	"github.com/acord-review/backend/internal/config"
	"github.com/acord-review/backend/internal/logger"
	"github.com/acord-review/backend/internal/models"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "acord-server",
	Short:         "ACORD form intake simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the real-time simulator",
	RunE:  runServe,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a batch through the simulator on a virtual clock and print every step",
	Long: `Run a batch through the simulator on a virtual clock and print every step.

Examples:
  acord-server simulate --files 3
  acord-server simulate --files 5 --for 4s --step 100ms --policy error`,
	RunE: runSimulate,
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "path to the YAML config file")

	simulateCmd.Flags().Int("files", 3, "number of ACORD forms in the batch")
	simulateCmd.Flags().Duration("for", 3*time.Second, "virtual time to simulate")
	simulateCmd.Flags().Duration("step", 200*time.Millisecond, "virtual time between printed snapshots")
	simulateCmd.Flags().String("policy", "", "deadline policy override (freeze, error, complete)")

	rootCmd.AddCommand(serveCmd, simulateCmd)
}

func loadConfig(cmd *cobra.Command) (*config.AppConfig, string, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	l := logger.Init(cfg.Advanced.LogLevel)
	api.ShowErrorDetails = l.GetLevel() == log.DebugLevel

	a, err := newApp(cfg, l)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, a, path)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	files, _ := cmd.Flags().GetInt("files")
	duration, _ := cmd.Flags().GetDuration("for")
	step, _ := cmd.Flags().GetDuration("step")
	policy, _ := cmd.Flags().GetString("policy")

	if files <= 0 {
		return fmt.Errorf("--files must be positive")
	}
	if step <= 0 {
		return fmt.Errorf("--step must be positive")
	}
	if policy != "" {
		cfg.Simulator.DeadlinePolicy = strings.ToLower(policy)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	a, err := newApp(cfg, logger.New(os.Stderr, cfg.Advanced.LogLevel))
	if err != nil {
		return err
	}
	defer a.Close()

	return simulate(cmd.Context(), cmd.OutOrStdout(), a, files, duration, step)
}

// simulate feeds one batch to the simulator and advances the virtual clock
// in fixed steps, printing every record after each step.
func simulate(ctx context.Context, out io.Writer, a *app, files int, duration, step time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}

	batch := make([]models.FileIntake, files)
	for i := range batch {
		batch[i] = models.FileIntake{
			Name: fmt.Sprintf("ACORD_%03d.pdf", i+1),
			Size: int64(i+1) * 64 * 1024,
			Type: "application/pdf",
		}
	}

	if _, err := a.sim.Intake(batch); err != nil {
		return err
	}
	for _, n := range a.hub.Recent(1) {
		fmt.Fprintf(out, "%s: %s\n", n.Title, n.Description)
	}

	for elapsed := time.Duration(0); elapsed < duration; elapsed += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.sim.Advance(step)
		printSnapshot(out, a.sim.Now(), a.sim.Snapshot())
	}

	stats, err := a.journal.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d transitions, %d completed, avg %.0fms intake to completion\n",
		stats.Transitions, stats.Completions, stats.AvgCompletionMs)
	return nil
}

func printSnapshot(out io.Writer, now time.Duration, records []models.FileRecord) {
	fmt.Fprintf(out, "t=%v\n", now)
	for _, r := range records {
		line := fmt.Sprintf("  %-16s %-10s %3d%%", r.Name, r.Status, r.Progress)
		if r.Expired {
			line += "  expired"
		}
		if r.Error != "" {
			line += "  (" + r.Error + ")"
		}
		fmt.Fprintln(out, line)
	}
}
