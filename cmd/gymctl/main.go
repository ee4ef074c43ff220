package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/claude/gymrest/internal/client"
	"github.com/claude/gymrest/internal/engine"
	gymmcp "github.com/claude/gymrest/internal/mcp"
	"github.com/claude/gymrest/internal/notify"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalOpts struct {
	server  string
	apiKey  string
	timeout time.Duration
}

func (o *globalOpts) client() *client.Client {
	return client.New(o.server, o.apiKey)
}

func (o *globalOpts) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:           "gymctl",
		Short:         "Gym master control for a GymRest server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("GYMREST_URL", "http://localhost:8080"), "GymRest server URL")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("GYMREST_API_KEY"), "operator API key")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newModeCmd(opts))
	root.AddCommand(newSessionsCmd(opts))
	root.AddCommand(newTimersCmd(opts))
	root.AddCommand(newEndTimerCmd(opts, "stop", "Stop an athlete's rest timer"))
	root.AddCommand(newEndTimerCmd(opts, "skip", "Skip an athlete's rest timer"))
	root.AddCommand(newExtendCmd(opts))
	root.AddCommand(newEndCmd(opts))
	root.AddCommand(newMCPCmd(opts))
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printStatus(w io.Writer, st engine.GymStatus) {
	mode := "off"
	if st.Enabled {
		mode = "on"
	}
	gymSession := "-"
	if st.CurrentGymSessionID != nil {
		gymSession = *st.CurrentGymSessionID
	}
	_, _ = fmt.Fprintf(w, "gym master: %s\ngym session: %s\nsessions: %d\ntimers: %d\n", mode, gymSession, st.ActiveSessions, st.ActiveTimers)
}

func newStatusCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gym master status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			st, err := opts.client().Status(ctx)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newModeCmd(opts *globalOpts) *cobra.Command {
	var gymSession string
	cmd := &cobra.Command{
		Use:       "mode on|off",
		Short:     "Enable or disable gym master mode",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("mode must be on or off, got %q", args[0])
			}
			var id *string
			if cmd.Flags().Changed("gym-session") {
				id = &gymSession
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()
			st, err := opts.client().SetMode(ctx, enabled, id)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVar(&gymSession, "gym-session", "", "set the current gym session ID (empty clears)")
	return cmd
}

func newSessionsCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List active workout sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			sessions, err := opts.client().ActiveSessions(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no active sessions")
				return nil
			}
			for _, s := range sessions {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tset %d/%d\trest %s (%d)\n",
					s.UserID, s.Status, s.CurrentSet, s.TotalSets,
					notify.FormatTime(s.TotalRestTimeAccumulatedSeconds), s.RestCount)
			}
			return nil
		},
	}
}

func newTimersCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "timers",
		Short: "List active rest timers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			timers, err := opts.client().ActiveTimers(ctx)
			if err != nil {
				return err
			}
			if len(timers) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no active timers")
				return nil
			}
			for _, t := range timers {
				state := "running"
				if t.IsPaused {
					state = "paused"
				}
				remaining := max(t.TargetDurationSeconds-t.ElapsedSeconds, 0)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s left\n",
					t.UserID, t.ExerciseName, state, notify.FormatTime(remaining))
			}
			return nil
		},
	}
}

func newEndTimerCmd(opts *globalOpts, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <user>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			c := opts.client()
			end := c.StopUserTimer
			if action == "skip" {
				end = c.SkipUserTimer
			}
			seconds, err := end(ctx, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s rest %sped after %s\n", args[0], action, notify.FormatTime(seconds))
			return nil
		},
	}
}

func newExtendCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "extend <user> <seconds>",
		Short: "Add seconds to an athlete's rest timer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("seconds must be a number: %w", err)
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()
			t, err := opts.client().ExtendUserTimer(ctx, args[0], seconds)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s rest target now %s\n", args[0], notify.FormatTime(t.TargetDurationSeconds))
			return nil
		},
	}
}

func newEndCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "end <user>",
		Short: "End an athlete's workout session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()
			s, err := opts.client().EndUserSession(ctx, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session ended: %s workout=%s active=%s rest=%s rests=%d sets=%d/%d\n",
				s.UserID,
				notify.FormatTime(s.TotalWorkoutDuration),
				notify.FormatTime(s.TotalActiveTime),
				notify.FormatTime(s.TotalRestTimeAccumulatedSeconds),
				s.RestCount, s.CompletedSets, s.TotalSets)
			return nil
		},
	}
}

// newMCPCmd serves the gym master MCP tools over stdio, backed by the
// remote server's REST API.
func newMCPCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve gym master MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			s := gymmcp.New(opts.client(), Version, log)
			return server.ServeStdio(s)
		},
	}
}
