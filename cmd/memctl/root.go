package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/internal/config"
	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/mem/reuse"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	logOn   bool
	logDir  string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "Exercise the memkit recycling allocator",
	Long: `memctl drives the memkit recycling allocator and the linked stack built
on it, printing stack contents and the allocator's block bookkeeping.

The raw memory provider is chosen with MEMKIT_PROVIDER (heap or mmap) and the
heap provider can be capped with MEMKIT_LIMIT (bytes).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		return logger.Init(logger.Options{Enabled: logOn, LogDir: logDir, Level: cfg.Level()})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&logOn, "log", false, "Write a JSON log file")
	rootCmd.PersistentFlags().
		StringVar(&logDir, "log-dir", "", "Directory for log files (default ~/.memkit/logs)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newAllocator builds an allocator over the configured provider.
func newAllocator() (*reuse.Allocator, error) {
	p, err := cfg.NewProvider()
	if err != nil {
		return nil, err
	}
	printVerbose("Provider: %s\n", cfg.Provider)
	return reuse.New(p, &reuse.Options{Logger: logger.ForAllocator(cfg.Provider)}), nil
}

// closeAllocator tears a down and logs the outcome.
func closeAllocator(a *reuse.Allocator) error {
	inUse, free := a.InUseCount(), a.FreeCount()
	if err := a.Close(); err != nil {
		logger.L.Error("allocator teardown failed", "err", err)
		return fmt.Errorf("close allocator: %w", err)
	}
	logger.L.Info("allocator closed", "released", inUse+free, "in_use", inUse, "free", free)
	return nil
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
