package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phosphor/internal/logger"
	"phosphor/pkg/config"
	"phosphor/pkg/engine"
)

var (
	configPath string
	verbose    bool
)

func init() {
	// GLFW requires the render loop to stay on the main thread
	runtime.LockOSThread()
}

var rootCmd = &cobra.Command{
	Use:   "phosphor",
	Short: "phosphor - CRT terminal display engine",
	Long: `phosphor renders a scrolling terminal surface through a multi-pass
procedural CRT pipeline: shadow mask, scanlines, bloom, phosphor glow,
chromatic convergence and barrel distortion, with scroll-locked warping.

Edit the config file while running to retune the overlay live.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if verbose {
			level = "debug"
		}

		log, err := logger.New(level)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer log.Sync()

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Warn("using default configuration", zap.Error(err))
		}
		if lvl := cfg.Logging.Level; lvl != "" && !verbose {
			if rebuilt, err := logger.New(lvl); err == nil {
				log = rebuilt
			}
		}

		eng, err := engine.NewEngine(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize engine: %w", err)
		}

		watcher, err := config.NewWatcher(configPath, log, eng.ApplyConfig)
		if err != nil {
			log.Warn("config watching unavailable", zap.Error(err))
		} else if err := watcher.Start(); err != nil {
			log.Warn("config watching failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}

		eng.AppendMessage("phosphor terminal ready")
		eng.AppendMessage("scroll with the wheel, arrows, or page keys; drag the thumb")
		eng.AppendMessage("F1 toggles the CRT overlay; edit the config file to retune it")

		log.Info("engine initialized, starting frame loop")
		eng.Run()
		return nil
	},
}

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
