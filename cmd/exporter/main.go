package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/owtf/exporter/internal/log"
	"github.com/owtf/exporter/internal/model"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var (
	userConfigPath string // /default/config/path/exporter on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "exporter")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is exporter.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initExporter

	exportCmd.Flags().StringVar(&flagMapping, "mapping", "", "relabel test groups using a named mapping")
	exportCmd.Flags().StringVar(&flagFormat, "format", "json", "output format: json or cyclonedx")
	exportCmd.Flags().StringArrayVar(&flagFilter, "filter", nil, "filter plugin outputs, key=value, may be repeated")
	exportCmd.Flags().StringVar(&flagServer, "server", "", "export from a running exporter, e.g. http://localhost:8009")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("exporter failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "exporter",
	Short:        "Exports OWTF findings of a target as a report",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve exposes the export endpoint over HTTP",
	Args:  cobra.NoArgs,
	RunE:  doServe,
}

var exportCmd = &cobra.Command{
	Use:   "export TARGET_ID",
	Short: "export prints a report of a target to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  doExport,
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "import loads a YAML dataset into the database",
	Args:  cobra.ExactArgs(1),
	RunE:  doImport,
}

var deleteCmd = &cobra.Command{
	Use:   "delete TARGET_ID",
	Short: "delete removes a target together with its plugin outputs",
	Args:  cobra.ExactArgs(1),
	RunE:  doDelete,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of an exporter",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("exporter: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config:   %s\n", configPath)
		}
		fmt.Printf("exporter: %s\n", info.Main.Version)
		fmt.Printf("go:       %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:   %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:     %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:    %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func initExporter(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("EXPORTERCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, "exporter.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, "exporter.yaml")
		err := os.MkdirAll(filepath.Dir(configPath), 0755)
		if err != nil {
			return fmt.Errorf("creating directory %s: %w", filepath.Dir(configPath), err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("creating file %s: %w", configPath, err)
		}
		defer func() {
			_ = f.Close()
		}()
		enc := yaml.NewEncoder(f)
		err = enc.Encode(config)
		if err != nil {
			return fmt.Errorf("storing configuration: %w", err)
		}
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				slog.Error(d.String(), d.Attr("config"))
			}
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		verbose := true
		config.Verbose = &verbose
	}

	slog.SetDefault(log.New(os.Stderr, config.IsVerbose()))

	slog.Debug("exporter run", "configPath", configPath)
	slog.Debug("exporter run", "config", config)
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
