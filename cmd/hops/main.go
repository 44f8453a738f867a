package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"hotelops/internal/app"
	"hotelops/internal/config"
	"hotelops/internal/db"
	"hotelops/internal/domain"
	"hotelops/internal/logging"
	"hotelops/internal/migrate"
	"hotelops/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "hops",
	Short: "hotelops CLI",
	Long: `hotelops tracks guest-reported maintenance issues and the supervisor notes that fix them.
- Working orders: complaints tied to a room and a stay, moving OPEN -> ASSIGNED -> IN_PROGRESS -> RESOLVED or DISMISSED.
- Notes: a supervisor's task list; estado 0 pending, 1 in progress, 2 completed.
- Convert-to-note links a working order to a new note; the note's estado then drives the order's status.
- Workspace: the directory holding hotelops.yml, .env and the .hotelops SQLite database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if err := godotenv.Load(filepath.Join(workspace, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
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
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("HOTELOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.StringP("config", "c", "", "config file (default <workspace>/hotelops.yml)")
	flags.Bool("json", false, "output JSON")
	flags.String("actor-id", "local-user", "actor identifier recorded on writes")
	flags.String("db-driver", "", "database driver: sqlite or mysql")
	flags.String("db-dsn", "", "database DSN")
	flags.String("log-format", "", "log format: console or json")
	flags.String("log-level", "", "log level")
	flags.String("sync-mode", "", "note status sync: inline or async")
	for _, name := range []string{"workspace", "config", "json", "actor-id", "db-driver", "db-dsn", "log-format", "log-level", "sync-mode"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(roomCmd())
	rootCmd.AddCommand(supervisorCmd())
	rootCmd.AddCommand(woCmd())
	rootCmd.AddCommand(noteCmd())
}

func loadConfig() (*config.Config, error) {
	return app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"), app.Overrides{
		Driver:    viper.GetString("db-driver"),
		DSN:       viper.GetString("db-dsn"),
		JWTSecret: viper.GetString("jwt-secret"),
		Addr:      viper.GetString("addr"),
		LogFormat: viper.GetString("log-format"),
		LogLevel:  viper.GetString("log-level"),
		SyncMode:  viper.GetString("sync-mode"),
		SentryDSN: viper.GetString("sentry-dsn"),
	})
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(logging.With(ctx, a.Logger), a)
}

func serveCmd() *cobra.Command {
	var basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if a.Config.Auth.JWTSecret == "" {
					return fmt.Errorf("auth.jwt_secret or HOTELOPS_JWT_SECRET is required for bearer auth")
				}
				if basePath == "" {
					basePath = a.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{
					Engine:   a.Engine,
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: a.Config.Auth.JWTSecret},
				})
				if err != nil {
					return err
				}
				addr := a.Config.Server.Addr
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Logger.Info("serving hotelops API", "addr", addr, "base_path", basePath, "openapi", basePath+"/openapi.json", "docs", "/docs")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides server.base_path)")
	cmd.Flags().String("jwt-secret", "", "HS256 secret for bearer tokens")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("jwt-secret", cmd.Flags().Lookup("jwt-secret"))
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Driver: cfg.Database.Driver, DSN: cfg.Database.DSN, Workspace: cfg.Database.Workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn, cfg.Database.Driver); err != nil {
				return err
			}
			v, err := migrate.Version(conn)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"driver": cfg.Database.Driver, "version": v})
			}
			fmt.Printf("%s schema at version %d\n", cfg.Database.Driver, v)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect hotelops.yml",
		Long:  "Config lives in <workspace>/hotelops.yml: server, database, auth roles, sync mode, logging, Sentry, cache, categories and seed data. Flags and HOTELOPS_* variables override it.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default hotelops.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			redacted := *cfg
			for _, s := range []*string{&redacted.Auth.JWTSecret, &redacted.Database.DSN, &redacted.Sentry.DSN} {
				if *s != "" {
					*s = "[REDACTED]"
				}
			}
			if viper.GetBool("json") {
				return printJSON(redacted)
			}
			out, err := yaml.Marshal(redacted)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := loadConfig()
			if viper.GetBool("json") {
				out := map[string]any{"ok": err == nil}
				if err != nil {
					out["error"] = err.Error()
				}
				return printJSON(out)
			}
			if err != nil {
				return err
			}
			fmt.Println(color.GreenString("config OK"))
			return nil
		},
	}
}

// --- helpers ---

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

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row(header))
	return tw
}

func statusColor(s domain.Status) string {
	switch s {
	case domain.StatusOpen:
		return color.YellowString(string(s))
	case domain.StatusAssigned:
		return color.CyanString(string(s))
	case domain.StatusInProgress:
		return color.BlueString(string(s))
	case domain.StatusResolved:
		return color.GreenString(string(s))
	default:
		return color.HiBlackString(string(s))
	}
}

func severityColor(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint(string(s))
	case domain.SeverityHigh:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}

func estadoColor(e domain.Estado) string {
	switch e {
	case domain.EstadoCompleted:
		return color.GreenString("%d %s", int(e), e)
	case domain.EstadoInProgress:
		return color.BlueString("%d %s", int(e), e)
	default:
		return color.YellowString("%d %s", int(e), e)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// splitCursor parses a created_at|id cursor as printed by the list commands.
func splitCursor(c string) (string, string, bool) {
	created, id, ok := strings.Cut(c, "|")
	if !ok || created == "" || id == "" {
		return "", "", false
	}
	return created, id, true
}
