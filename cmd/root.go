package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nutridb/internal/reader"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dsn        string
	cfgFile    string
	DriverName string // "mysql", "postgres", "sqlserver" or "oracle"
)

var RootCmd = &cobra.Command{
	Use:   "nutridb",
	Short: "USDA nutrient database loader",
	Long: `
              _        _     _ _
  _ __  _   _| |_ _ __(_) __| | |__
 | '_ \| | | | __| '__| |/ _` + "`" + ` | '_ \
 | | | | |_| | |_| |  | | (_| | |_) |
 |_| |_|\__,_|\__|_|  |_|\__,_|_.__/

nutridb - fetches the USDA Standard Reference archive and loads it into a database
`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Define flags
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./nutridb.yaml)")
	RootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database Source Name (DSN)")

	// Bind dsn flag to viper
	viper.BindPFlag("database.dsn", RootCmd.PersistentFlags().Lookup("dsn"))

	viper.SetDefault("source.url", "https://www.ars.usda.gov/ARSUserFiles/80400525/Data/SR/SR28/dnload/sr28asc.zip")
	viper.SetDefault("source.version", "sr28")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			exePath := filepath.Dir(ex)
			viper.AddConfigPath(exePath)
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("nutridb")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// openDatabase connects using the active config entry, falling back to the
// --dsn flag with driver auto-detection. The caller owns the handle.
func openDatabase() (*sql.DB, error) {
	var driver, connStr string

	if config, err := GetActiveDBConfig(); err == nil {
		driver = config.Driver
		connStr = config.DSN
		fmt.Printf("Connected to %s (%s)\n", config.Name, config.Driver)
	} else {
		connStr = viper.GetString("database.dsn")
		if connStr == "" {
			return nil, fmt.Errorf("database.dsn is required (via flag or config)")
		}
		driver = viper.GetString("database.driver")
		if driver == "" {
			if strings.Contains(connStr, "postgres") || strings.Contains(connStr, "sslmode") {
				driver = "postgres"
			} else if strings.Contains(connStr, "sqlserver") {
				driver = "sqlserver"
			} else if strings.Contains(connStr, "oracle") {
				driver = "oracle"
			} else {
				driver = "mysql"
			}
		}
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	DriverName = driver
	return db, nil
}

// readerOptions assembles the dataset location from config, defaulting the
// cache root to the per-user cache directory.
func readerOptions() (reader.Options, error) {
	cacheDir := viper.GetString("cache.dir")
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return reader.Options{}, fmt.Errorf("failed to resolve user cache dir: %w", err)
		}
		cacheDir = filepath.Join(base, "nutridb")
	}

	return reader.Options{
		SourceURL: viper.GetString("source.url"),
		CacheDir:  cacheDir,
		Version:   viper.GetString("source.version"),
		Lenient:   viper.GetBool("settings.lenient"),
	}, nil
}
