package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openmined/syncbox/internal/boxsdk"
	"github.com/openmined/syncbox/internal/client/config"
	"github.com/openmined/syncbox/internal/client/sync"
	"github.com/openmined/syncbox/internal/version"
)

const configFileName = "config"

var rootCmd = &cobra.Command{
	Use:     "syncbox",
	Short:   "Synchronize a local directory with a SyncBox store",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			Path:        viper.ConfigFileUsed(),
			DataDir:     viper.GetString("data_dir"),
			ServerURL:   viper.GetString("server_url"),
			AccessToken: viper.GetString("access_token"),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		cmd.SilenceUsage = true

		sdk, err := boxsdk.New(cfg.ServerURL, cfg.AccessToken)
		if err != nil {
			return fmt.Errorf("failed to initialize remote session: %w", err)
		}
		defer sdk.Close()

		who, err := sdk.Whoami(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize remote session: %w", err)
		}
		slog.Info("connected", "server", cfg.ServerURL, "user", who.User, "dir", cfg.DataDir)

		engine := sync.NewEngine(sdk.Files, cfg.DataDir)
		return engine.Run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("datadir", "d", config.DefaultDataDir, "Directory to synchronize")
	rootCmd.Flags().StringP("server", "s", config.DefaultServerURL, "SyncBox server")
	rootCmd.Flags().StringP("token", "t", "", "SyncBox access token")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "SyncBox config file")
}

func main() {
	// .env is handy for tokens in dev setups; missing file is fine
	_ = godotenv.Load()

	logHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
	slog.SetDefault(slog.New(logHandler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	home, _ := os.UserHomeDir()

	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".syncbox"))
		viper.AddConfigPath(filepath.Join(home, ".config/syncbox"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("data_dir", cmd.Flags().Lookup("datadir"))
	viper.BindPFlag("server_url", cmd.Flags().Lookup("server"))
	viper.BindPFlag("access_token", cmd.Flags().Lookup("token"))

	viper.SetEnvPrefix("SYNCBOX")
	viper.AutomaticEnv()

	return nil
}
