package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"focusline/internal/assistant"
	"focusline/internal/config"
	"focusline/internal/db"
	"focusline/internal/engine"
	"focusline/internal/migrate"
	"focusline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "fl",
	Short: "Focusline CLI",
	Long: `Focusline is a weekly planning assistant for one person.
The cycle:
- Monday: set this week's priorities (fl plan set).
- During the week: break priorities into steps (fl steps generate) and
  check them off (fl toggle). Completing every step completes the
  priority, and completion never un-ratchets.
- Friday: run the retrospective (fl retro) to get advice and carry
  unfinished priorities into next week.
- A fully completed week can be archived (fl archive) after fetching a
  motivational send-off (fl motivate).
State lives in the .focusline workspace database; fl serve exposes the
same cycle over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("FOCUSLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("now", "", "override the clock (RFC3339), for demos and testing")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("now", rootCmd.PersistentFlags().Lookup("now"))
}

func registerCommands() {
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(roleCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(stepsCmd())
	rootCmd.AddCommand(toggleCmd())
	rootCmd.AddCommand(retroCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(motivateCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(serveCmd())
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current view and record",
		Long:  "Tells you where you are in the weekly cycle: welcome, monday, dashboard, or friday.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				snap := e.Snapshot(ctx)
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				fmt.Printf("View: %s\n", snap.View)
				if snap.Record.Role != "" {
					fmt.Printf("Role: %s\n", snap.Record.Role)
				}
				printPlanTable(snap)
				return nil
			})
		},
	}
	return cmd
}

func roleCmd() *cobra.Command {
	role := &cobra.Command{Use: "role", Short: "Manage your work role"}
	role.AddCommand(roleSetCmd())
	role.AddCommand(roleShowCmd())
	return role
}

func roleSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <role>",
		Short: "Set your work role",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := strings.TrimSpace(strings.Join(args, " "))
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				rec, err := e.SetRole(ctx, role)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rec)
				}
				fmt.Printf("Role set: %s\n", rec.Role)
				return nil
			})
		},
	}
	return cmd
}

func roleShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your work role",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				rec := e.Load(ctx)
				if viper.GetBool("json") {
					return printJSON(map[string]string{"role": rec.Role})
				}
				if rec.Role == "" {
					fmt.Println("No role set yet. Run: fl role set <role>")
					return nil
				}
				fmt.Println(rec.Role)
				return nil
			})
		},
	}
	return cmd
}

func planCmd() *cobra.Command {
	plan := &cobra.Command{
		Use:   "plan",
		Short: "Manage this week's priorities",
	}
	plan.AddCommand(planSetCmd())
	plan.AddCommand(planShowCmd())
	return plan
}

func planSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <priority> [priority...]",
		Short: "Set this week's priorities",
		Long:  "Replaces the current plan wholesale. Each argument becomes one priority with fresh ids and no steps.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				rec, err := e.SetPriorities(ctx, args)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rec)
				}
				fmt.Printf("Plan set with %d priorities.\n", len(rec.Priorities))
				printPlanTable(engine.Snapshot{Record: rec})
				return nil
			})
		},
	}
	return cmd
}

func planShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show this week's plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				snap := e.Snapshot(ctx)
				if viper.GetBool("json") {
					return printJSON(snap.Record)
				}
				if len(snap.Record.Priorities) == 0 {
					fmt.Println("No priorities set. Run: fl plan set <priority>...")
					return nil
				}
				printPlanTable(snap)
				return nil
			})
		},
	}
	return cmd
}

func stepsCmd() *cobra.Command {
	steps := &cobra.Command{Use: "steps", Short: "Manage actionable steps"}
	steps.AddCommand(stepsGenerateCmd())
	return steps
}

func stepsGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <priority-id>",
		Short: "Break a priority into actionable steps",
		Long:  "Asks the assistant for 3-5 concrete steps. Re-running replaces the existing steps.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				p, err := e.GenerateSteps(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("Steps for %q:\n", p.Text)
				for _, s := range p.ActionableSteps {
					fmt.Printf("  [%s] %s\n", s.ID, s.Text)
				}
				if len(p.ActionableSteps) == 0 {
					fmt.Println("  (the assistant produced no steps)")
				}
				return nil
			})
		},
	}
	return cmd
}

func toggleCmd() *cobra.Command {
	toggle := &cobra.Command{Use: "toggle", Short: "Toggle completion"}
	toggle.AddCommand(togglePriorityCmd())
	toggle.AddCommand(toggleStepCmd())
	return toggle
}

func togglePriorityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "priority <priority-id>",
		Short: "Toggle a priority's completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				rec := e.TogglePriority(ctx, args[0])
				if viper.GetBool("json") {
					return printJSON(rec)
				}
				printPlanTable(engine.Snapshot{Record: rec})
				return nil
			})
		},
	}
	return cmd
}

func toggleStepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step <priority-id> <step-id>",
		Short: "Toggle a step's completion",
		Long:  "Checking the last open step completes the owning priority; unchecking it afterwards does not un-complete it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				rec := e.ToggleStep(ctx, args[0], args[1])
				if viper.GetBool("json") {
					return printJSON(rec)
				}
				printPlanTable(engine.Snapshot{Record: rec})
				return nil
			})
		},
	}
	return cmd
}

func retroCmd() *cobra.Command {
	var carryOver []string
	var blockages string
	cmd := &cobra.Command{
		Use:   "retro",
		Short: "Complete the weekly retrospective",
		Long:  "Fetches advice for next week from the assistant and carries the chosen priorities over with fresh ids. The blockage note is sent to the assistant, never stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				advice, rec, err := e.CompleteRetrospective(ctx, carryOver, blockages)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"advice": advice, "record": rec})
				}
				fmt.Println("Advice for next week:")
				fmt.Printf("  %s\n", advice)
				if len(rec.Priorities) > 0 {
					fmt.Printf("Carried %d priorities into next week.\n", len(rec.Priorities))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&carryOver, "carry-over", nil, "priority texts to carry into next week")
	cmd.Flags().StringVar(&blockages, "blockages", "", "what blocked you this week")
	return cmd
}

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive a fully completed week",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				rec, err := e.ArchiveWeek(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rec)
				}
				fmt.Println("Week archived. The slate is clean.")
				return nil
			})
		},
	}
	return cmd
}

func motivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "motivate",
		Short: "Motivational feedback on completed work",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				msg, err := e.Motivation(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"message": msg})
				}
				fmt.Println(msg)
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Events.Latest(ctx, n, evtType)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity"})
				for _, ev := range items {
					tw.AppendRow(table.Row{ev.ID, ev.TS, ev.Type, ev.EntityID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage configuration"}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default focusline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

func authCmd() *cobra.Command {
	auth := &cobra.Command{Use: "auth", Short: "Authentication helpers"}
	auth.AddCommand(authTokenCmd())
	return auth
}

func authTokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for fl serve",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return fmt.Errorf("server.jwt_secret not configured; set it in focusline.yml or FOCUSLINE_JWT_SECRET")
			}
			token, err := server.IssueToken(cfg.Server.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "focusline", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				authCfg := server.AuthConfig{
					JWTSecret: e.Config.Server.JWTSecret,
					APIKey:    e.Config.Server.APIKey,
				}
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Focusline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	gw := assistant.NewService(&assistant.Client{
		BaseURL: cfg.Assistant.BaseURL,
		APIKey:  cfg.Assistant.APIKey,
		Model:   cfg.Assistant.Model,
		Timeout: cfg.AssistantTimeout(),
	})
	e := engine.New(conn, cfg, gw)
	e.Log = newLogger(cfg)
	if nowFlag := viper.GetString("now"); nowFlag != "" {
		fixed, err := time.Parse(time.RFC3339, nowFlag)
		if err != nil {
			return fmt.Errorf("invalid --now value %q: %w", nowFlag, err)
		}
		e.Now = func() time.Time { return fixed }
	}
	return fn(ctx, e)
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func printPlanTable(snap engine.Snapshot) {
	if len(snap.Record.Priorities) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Priority", "Done", "Steps"})
	for _, p := range snap.Record.Priorities {
		steps := "not generated"
		if p.ActionableSteps != nil {
			done := 0
			for _, s := range p.ActionableSteps {
				if s.IsCompleted {
					done++
				}
			}
			steps = fmt.Sprintf("%d/%d", done, len(p.ActionableSteps))
		}
		tw.AppendRow(table.Row{p.ID, p.Text, checkbox(p.IsCompleted), steps})
	}
	tw.Render()
	for _, p := range snap.Record.Priorities {
		for _, s := range p.ActionableSteps {
			fmt.Printf("  %s %s [%s]\n", checkbox(s.IsCompleted), s.Text, s.ID)
		}
	}
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
