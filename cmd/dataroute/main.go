package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/dataroute/internal/auth"
	"github.com/saltyorg/dataroute/internal/config"
	"github.com/saltyorg/dataroute/internal/database"
	"github.com/saltyorg/dataroute/internal/dataroute"
	"github.com/saltyorg/dataroute/internal/hooks"
	"github.com/saltyorg/dataroute/internal/logging"
	"github.com/saltyorg/dataroute/internal/sqlbind"
	"github.com/saltyorg/dataroute/internal/web"
	"github.com/saltyorg/dataroute/internal/web/handlers"
)

var (
	// Build information (set via ldflags)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"

	// CLI flags
	port        int
	bind        string
	allowSubnet string
	verbose     int
	logFile     string

	driver string
	dsn    string

	apiKey        string
	jwtSecret     string
	jwtSecretFile string
	jwtIssuer     string
	jwtAudience   string

	requestTimeout  time.Duration
	shutdownTimeout time.Duration

	allowUnconditionalUpdate bool
	allowUnconditionalDelete bool
	boundedDelete            bool
	zeroOffset               bool
	defaultLimit             int
	maxLimit                 int
	initSQL                  string
)

var rootCmd = &cobra.Command{
	Use:   "dataroute",
	Short: "Add, edit, remove and list rows over HTTP",
	Long: `Dataroute exposes add, edit, remove and list methods over any table of a
SQLite, MySQL, PostgreSQL or DuckDB database. Field maps become
parameterized statements and sensitive columns are stripped from results.`,
	RunE: run,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dataroute %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&driver, "driver", "sqlite", "Database driver (sqlite, mysql, postgres, duckdb) (env: DB_DRIVER)")
	pf.StringVarP(&dsn, "dsn", "d", "./dataroute.db", "Database DSN or file path (env: DB_DSN)")
	pf.CountVarP(&verbose, "verbose", "v", "Increase verbosity (-v for debug, -vv for trace)")
	pf.StringVar(&jwtSecret, "jwt-secret", "", "Shared secret for HS256 bearer tokens (env: JWT_SECRET)")
	pf.StringVar(&jwtSecretFile, "jwt-secret-file", "", "Load the JWT secret from this file, creating it if missing")
	pf.StringVar(&jwtIssuer, "jwt-issuer", "", "Expected token issuer")
	pf.StringVar(&jwtAudience, "jwt-audience", "", "Expected token audience")

	f := rootCmd.Flags()
	f.IntVarP(&port, "port", "p", 8080, "HTTP server port (env: PORT)")
	f.StringVarP(&bind, "bind", "b", "", "IP address to bind to (default: all interfaces)")
	f.StringVarP(&allowSubnet, "allow-subnet", "a", "", "Restrict access to this CIDR subnet (e.g., 192.168.1.0/24)")
	f.StringVar(&logFile, "log-file", "", "Log file path (default: next to a SQLite database)")
	f.StringVar(&apiKey, "api-key", "", "Static API key required on /v1 routes (env: API_KEY)")
	f.DurationVar(&requestTimeout, "request-timeout", config.DefaultTimeoutConfig().Request, "Maximum duration of a single method call")
	f.DurationVar(&shutdownTimeout, "shutdown-timeout", config.DefaultTimeoutConfig().Shutdown, "Maximum duration of graceful shutdown")
	f.BoolVar(&allowUnconditionalUpdate, "allow-unconditional-update", false, "Allow edit without where fields to update every row")
	f.BoolVar(&allowUnconditionalDelete, "allow-unconditional-delete", false, "Allow remove without where fields to delete every row")
	f.BoolVar(&boundedDelete, "bounded-delete", false, "Limit remove to one row unless a limit is given")
	f.BoolVar(&zeroOffset, "zero-offset", false, "Emit OFFSET 0 when list has no offset")
	f.IntVar(&defaultLimit, "default-limit", dataroute.DefaultListLimit, "Rows returned by list when no limit is given")
	f.IntVar(&maxLimit, "max-limit", 0, "Reject list limits above this value (0 disables)")
	f.StringVar(&initSQL, "init-sql", "", "SQL script run once at startup, e.g. to create tables")

	rootCmd.AddCommand(versionCmd, migrateCmd, settingsCmd, tokenCmd, keygenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	applyEnv(cmd)

	// Console logging until the settings table is readable
	logging.Apply(logging.LevelFromVerbosity(verbose), nil, "")

	if bind != "" && net.ParseIP(bind) == nil {
		return fmt.Errorf("invalid bind address: %s", bind)
	}

	var allowedNet *net.IPNet
	if allowSubnet != "" {
		var err error
		_, allowedNet, err = net.ParseCIDR(allowSubnet)
		if err != nil {
			return fmt.Errorf("invalid subnet: %w", err)
		}
	}

	timeouts := config.DefaultTimeoutConfig()
	timeouts.Request = requestTimeout
	timeouts.Shutdown = shutdownTimeout
	config.SetGlobalTimeouts(timeouts)

	if bind == "" && allowedNet == nil {
		log.Warn().Msg("Binding to all interfaces without a subnet restriction")
	}

	log.Info().
		Str("version", version).
		Str("commit", commit).
		Str("driver", driver).
		Int("port", port).
		Msg("Starting dataroute")

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	loader := config.NewLoader(db)
	logPath := logFile
	if logPath == "" && db.Dialect().Name == sqlbind.SQLite.Name {
		logPath = logging.FilePathForDB(dsn)
	}
	// -v on the command line wins over the stored level
	level := logging.LevelFromVerbosity(verbose)
	if verbose == 0 {
		level = loader.String("log.level", level)
	}
	logging.Apply(level, loader, logPath)

	authenticator, err := newAuthenticator(true)
	if err != nil {
		return err
	}

	opts := dataroute.LoadOptions(loader, dataroute.Options{
		DefaultLimit:             defaultLimit,
		MaxLimit:                 maxLimit,
		ZeroOffset:               zeroOffset,
		AllowUnconditionalUpdate: allowUnconditionalUpdate,
		AllowUnconditionalDelete: allowUnconditionalDelete,
		BoundedDelete:            boundedDelete,
		OnRegister:               registerSchema(),
	})
	opts.Hooks = hooks.FromSettings(loader, db.Dialect())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	route := dataroute.New(db, opts)
	if err := route.Register(ctx); err != nil {
		return fmt.Errorf("failed to register route: %w", err)
	}

	server := web.NewServer(route, db, web.Options{
		Port:          port,
		Bind:          bind,
		AllowedNet:    allowedNet,
		Authenticator: authenticator,
		Version:       handlers.VersionInfo{Version: version, Commit: commit, Date: date},
	})

	if err := server.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Server error")
		return err
	}

	log.Info().Msg("Dataroute stopped")
	return nil
}

// applyEnv fills flags the user did not set from the environment
func applyEnv(cmd *cobra.Command) {
	envString := func(flag, env string, dst *string) {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			return
		}
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	envString("driver", "DB_DRIVER", &driver)
	envString("dsn", "DB_DSN", &dsn)
	envString("api-key", "API_KEY", &apiKey)
	envString("jwt-secret", "JWT_SECRET", &jwtSecret)

	if f := cmd.Flags().Lookup("port"); f != nil && !f.Changed {
		if envPort := os.Getenv("PORT"); envPort != "" {
			if _, err := fmt.Sscanf(envPort, "%d", &port); err != nil {
				log.Warn().Str("PORT", envPort).Msg("Ignoring invalid PORT")
			}
		}
	}
}

// openDatabase connects, migrates SQLite databases and seeds default settings
func openDatabase() (*database.DB, error) {
	db, err := database.New(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		if !errors.Is(err, database.ErrMigrationsUnsupported) {
			db.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		log.Debug().Str("driver", driver).Msg("Skipping built-in migrations")
		return db, nil
	}

	if err := db.InitializeDefaults(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize settings: %w", err)
	}
	return db, nil
}

// registerSchema runs the --init-sql script once the route is registered
func registerSchema() func(ctx context.Context, h dataroute.Handle) error {
	if initSQL == "" {
		return nil
	}
	return func(ctx context.Context, h dataroute.Handle) error {
		script, err := os.ReadFile(initSQL)
		if err != nil {
			return fmt.Errorf("failed to read init script: %w", err)
		}
		if err := database.RunScript(ctx, h, string(script)); err != nil {
			return err
		}
		log.Info().Str("file", initSQL).Msg("Ran init script")
		return nil
	}
}

// newAuthenticator builds the authenticator from flags. With server set a
// missing secret file is created.
func newAuthenticator(server bool) (*auth.Authenticator, error) {
	secret := jwtSecret
	if secret == "" && jwtSecretFile != "" {
		if !server {
			if _, err := os.Stat(jwtSecretFile); err != nil {
				return nil, fmt.Errorf("jwt secret file: %w", err)
			}
		}
		loaded, err := auth.LoadOrCreateSecret(jwtSecretFile)
		if err != nil {
			return nil, err
		}
		secret = loaded
	}
	if secret != "" && len(secret) < auth.MinSecretLength {
		log.Warn().Int("length", len(secret)).Msgf("JWT secret is shorter than %d bytes", auth.MinSecretLength)
	}

	return auth.New(auth.Config{
		APIKey:    apiKey,
		JWTSecret: secret,
		Issuer:    jwtIssuer,
		Audience:  jwtAudience,
	}), nil
}
