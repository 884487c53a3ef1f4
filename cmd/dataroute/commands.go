package main

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/saltyorg/dataroute/internal/auth"
	"github.com/saltyorg/dataroute/internal/database"
	"github.com/saltyorg/dataroute/internal/logging"
	"github.com/saltyorg/dataroute/internal/sqlbind"
	"github.com/saltyorg/dataroute/internal/web/handlers"
)

var (
	optimize bool
	vacuum   bool
	tokenTTL time.Duration
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply built-in migrations to a SQLite database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCommandDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if optimize {
			if err := db.Optimize(); err != nil {
				return err
			}
		}
		if vacuum {
			if err := db.Vacuum(); err != nil {
				return err
			}
		}
		if db.Dialect().Name != sqlbind.SQLite.Name {
			fmt.Printf("No built-in migrations for %s; use --init-sql to manage its tables\n", db.Dialect().Name)
			return nil
		}
		fmt.Println("Database is up to date")
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change stored settings",
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCommandDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		all, err := db.GetAllSettings()
		if err != nil {
			return err
		}
		for _, key := range slices.Sorted(maps.Keys(all)) {
			fmt.Printf("%s=%s\n", key, all[key])
		}
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCommandDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		value, err := db.GetSetting(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting; the server reads it on start",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := handlers.ValidateSetting(args[0], args[1])
		if err != nil {
			return err
		}

		db, err := openCommandDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.SetSetting(args[0], value); err != nil {
			return err
		}
		fmt.Printf("%s=%s\n", args[0], value)
		return nil
	},
}

var settingsDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCommandDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		return db.DeleteSetting(args[0])
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a bearer token signed with the JWT secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyEnv(cmd)
		logging.Apply(logging.LevelFromVerbosity(verbose), nil, "")

		a, err := newAuthenticator(false)
		if err != nil {
			return err
		}
		token, err := a.IssueToken(args[0], tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a random API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.GenerateAPIKey()
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&optimize, "optimize", false, "Run PRAGMA optimize afterwards")
	migrateCmd.Flags().BoolVar(&vacuum, "vacuum", false, "Reclaim free space afterwards")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime (0 for no expiry)")

	settingsCmd.AddCommand(settingsListCmd, settingsGetCmd, settingsSetCmd, settingsDeleteCmd)
}

// openCommandDB opens the database for a maintenance subcommand
func openCommandDB(cmd *cobra.Command) (*database.DB, error) {
	applyEnv(cmd)
	logging.Apply(logging.LevelFromVerbosity(verbose), nil, "")
	return openDatabase()
}
