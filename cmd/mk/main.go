package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mindkeep/internal/app"
	"mindkeep/internal/db"
	"mindkeep/internal/engine"
	"mindkeep/internal/migrate"
	"mindkeep/internal/repo"
	"mindkeep/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "mk",
	Short: "Mindkeep CLI",
	Long: `Mindkeep is a local-first wellness journal with derived metrics.
Concepts:
- Workspace: your .mindkeep directory holding the database; config lives in mindkeep.yml next to it.
- Moods: self-reports on 1-10 scales for mood, energy, and stress; note and tags are free-form.
- Activities: completed wellness exercises (breathing, meditation, journaling, ...) with a duration; rate them 1-5 afterwards.
- Goals: numeric targets with clamped progress; completion sticks once reached.
- Insights: observations produced elsewhere and acknowledged here.
- Metrics: the wellness score (0-100), the day streaks, and the activity total; recomputed on every change.
- Event log: diary of everything that happened, view with 'mk log tail'.`,
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
	viper.SetEnvPrefix("MINDKEEP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(moodCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(goalCmd())
	rootCmd.AddCommand(insightCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func moodCmd() *cobra.Command {
	mood := &cobra.Command{
		Use:   "mood",
		Short: "Manage mood entries",
		Long:  "Mood entries are append-only self-reports. Scales out of range are clamped, never rejected; only note and tags can be edited afterwards.",
	}
	mood.AddCommand(moodLogCmd())
	mood.AddCommand(moodListCmd())
	mood.AddCommand(moodUpdateCmd())
	mood.AddCommand(moodDeleteCmd())
	return mood
}

func moodLogCmd() *cobra.Command {
	var opts engine.MoodLogOptions
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log a mood entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.LogMood(ctx, opts)
				if err != nil {
					return err
				}
				m, err := e.Metrics(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"entry": entry, "metrics": m})
				}
				fmt.Printf("Logged mood %d / energy %d / stress %d (%s)\n", entry.Mood, entry.Energy, entry.Stress, entry.ID)
				fmt.Printf("Wellness score: %d, streak: %d day(s)\n", m.WellnessScore, m.CurrentStreak)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&opts.Mood, "mood", 5, "mood 1-10")
	cmd.Flags().IntVar(&opts.Energy, "energy", 5, "energy 1-10")
	cmd.Flags().IntVar(&opts.Stress, "stress", 5, "stress 1-10")
	cmd.Flags().StringVar(&opts.Note, "note", "", "note")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", []string{}, "tag (repeatable)")
	return cmd
}

func moodListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List mood entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListMoodEntries(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Mood", "Energy", "Stress", "Note", "Tags", "Timestamp"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.ID, e.Mood, e.Energy, e.Stress, e.Note, strings.Join(e.Tags, ","), e.Timestamp.Format(time.RFC3339)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max entries")
	return cmd
}

func moodUpdateCmd() *cobra.Command {
	var note string
	var tags []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a mood entry's note and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts engine.MoodUpdateOptions
			if cmd.Flags().Changed("note") {
				opts.Note = &note
			}
			if cmd.Flags().Changed("tag") {
				opts.Tags = &tags
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entry, err := e.UpdateMoodEntry(ctx, args[0], opts)
				if err != nil {
					return err
				}
				if entry.ID == "" {
					fmt.Println("no such entry; nothing changed")
					return nil
				}
				return printJSONOrTable(entry)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "new note")
	cmd.Flags().StringArrayVar(&tags, "tag", []string{}, "replacement tag (repeatable)")
	return cmd
}

func moodDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a mood entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteMoodEntry(ctx, args[0])
			})
		},
	}
	return cmd
}

func activityCmd() *cobra.Command {
	act := &cobra.Command{
		Use:   "activity",
		Short: "Manage activities",
		Long:  "Activities are completed wellness exercises. They feed the score's trailing-window bonus; the optional rating is feedback only.",
	}
	act.AddCommand(activityLogCmd())
	act.AddCommand(activityRateCmd())
	act.AddCommand(activityListCmd())
	return act
}

func activityLogCmd() *cobra.Command {
	var opts engine.ActivityOptions
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a completed activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CompleteActivity(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Type, "type", "meditation", "activity type (breathing, meditation, journaling, reflection, music)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().IntVar(&opts.DurationMinutes, "minutes", 1, "duration in minutes")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func activityRateCmd() *cobra.Command {
	var rating int
	var notes string
	cmd := &cobra.Command{
		Use:   "rate <id>",
		Short: "Rate a completed activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.RateActivity(ctx, args[0], rating, notes)
				if err != nil {
					return err
				}
				if a.ID == "" {
					fmt.Println("no such activity; nothing changed")
					return nil
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().IntVar(&rating, "rating", 3, "rating 1-5")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	return cmd
}

func activityListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListActivities(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Type", "Title", "Minutes", "Rating", "Completed"})
				for _, a := range items {
					rating := ""
					if a.Rating != nil {
						rating = fmt.Sprint(*a.Rating)
					}
					tw.AppendRow(table.Row{a.ID, a.Type, a.Title, a.DurationMinutes, rating, a.CompletedAt.Format(time.RFC3339)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max entries")
	return cmd
}

func goalCmd() *cobra.Command {
	goal := &cobra.Command{
		Use:   "goal",
		Short: "Manage goals",
		Long:  "Goals track numeric targets. Progress is clamped to [0, target] and completion sticks once reached, even if progress is later corrected downward.",
	}
	goal.AddCommand(goalCreateCmd())
	goal.AddCommand(goalListCmd())
	goal.AddCommand(goalProgressCmd())
	goal.AddCommand(goalCompleteCmd())
	goal.AddCommand(goalDeleteCmd())
	return goal
}

func goalCreateCmd() *cobra.Command {
	var opts engine.GoalCreateOptions
	var deadline string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deadline != "" {
				t, err := time.Parse(time.RFC3339, deadline)
				if err != nil {
					return fmt.Errorf("invalid --deadline: %w", err)
				}
				opts.Deadline = &t
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.CreateGoal(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Type, "type", "habit", "goal type (mood, habit, activity, mindfulness)")
	cmd.Flags().Float64Var(&opts.TargetValue, "target", 1, "target value")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "unit label")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (RFC3339)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func goalListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListGoals(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Progress", "Unit", "Done"})
				for _, g := range items {
					tw.AppendRow(table.Row{g.ID, g.Title, g.Type, fmt.Sprintf("%g/%g", g.CurrentValue, g.TargetValue), g.Unit, g.IsCompleted})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func goalProgressCmd() *cobra.Command {
	var amount float64
	cmd := &cobra.Command{
		Use:   "progress <id>",
		Short: "Increment goal progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.IncrementGoalProgress(ctx, args[0], amount)
				if err != nil {
					return err
				}
				if g.ID == "" {
					fmt.Println("no such goal; nothing changed")
					return nil
				}
				return printJSONOrTable(g)
			})
		},
	}
	cmd.Flags().Float64Var(&amount, "amount", 1, "amount to add (negative to correct)")
	return cmd
}

func goalCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Force-complete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				g, err := e.CompleteGoal(ctx, args[0])
				if err != nil {
					return err
				}
				if g.ID == "" {
					fmt.Println("no such goal; nothing changed")
					return nil
				}
				return printJSONOrTable(g)
			})
		},
	}
	return cmd
}

func goalDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteGoal(ctx, args[0])
			})
		},
	}
	return cmd
}

func insightCmd() *cobra.Command {
	ins := &cobra.Command{
		Use:   "insight",
		Short: "Manage insights",
		Long:  "Insights are observations generated outside the engine and stored for acknowledgment. Viewing one is a one-way flip.",
	}
	ins.AddCommand(insightAddCmd())
	ins.AddCommand(insightListCmd())
	ins.AddCommand(insightViewCmd())
	return ins
}

func insightAddCmd() *cobra.Command {
	var opts engine.InsightOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store an insight",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				in, err := e.AddInsight(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(in)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Type, "type", "mood_trend", "insight type (mood_trend, goal_progress, activity_streak, correlation)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.DataJSON, "data-json", "", "supporting data JSON")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func insightListCmd() *cobra.Command {
	var unviewed bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List insights",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListInsights(ctx, unviewed, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Type", "Title", "Viewed", "Generated"})
				for _, in := range items {
					tw.AppendRow(table.Row{in.ID, in.Type, in.Title, in.IsViewed, in.GeneratedAt.Format(time.RFC3339)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unviewed, "unviewed", false, "only unviewed insights")
	cmd.Flags().IntVar(&limit, "limit", 20, "max entries")
	return cmd
}

func insightViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <id>",
		Short: "Mark an insight viewed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				in, err := e.MarkInsightViewed(ctx, args[0])
				if err != nil {
					return err
				}
				if in.ID == "" {
					fmt.Println("no such insight; nothing changed")
					return nil
				}
				return printJSONOrTable(in)
			})
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show wellness metrics",
		Long:  "The scoreboard: wellness score, current and longest day streaks, and total recorded activities.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.Metrics(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(m)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendRow(table.Row{"Wellness score", m.WellnessScore})
				tw.AppendRow(table.Row{"Current streak", fmt.Sprintf("%d day(s)", m.CurrentStreak)})
				tw.AppendRow(table.Row{"Longest streak", fmt.Sprintf("%d day(s)", m.LongestStreak)})
				tw.AppendRow(table.Row{"Total activities", m.TotalActivities})
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: mood entries, activities, goals, insights, and metric recomputes.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config is the rulebook (mindkeep.yml): the profile name plus the scoring weights and windows the metrics run with.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	var profile string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default mindkeep.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.WriteDefault(viper.GetString("workspace"), profile)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "local", "profile name")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
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
			cfg, err := app.ResolveConfig(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Mindkeep API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := app.ResolveConfig(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
