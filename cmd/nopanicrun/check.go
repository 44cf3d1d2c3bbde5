package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mpyw/nopanic/internal/config"
	"github.com/mpyw/nopanic/internal/depmap"
	"github.com/mpyw/nopanic/internal/engine"
	"github.com/mpyw/nopanic/internal/loader"
	"github.com/mpyw/nopanic/internal/model"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] [package]",
		Short: "Check the deny regions of a package",
		Long: `Check loads the package (default ".") and every dependency its deny regions
reach, and prints a PANIC REACHABLE block for each path to a panic and a
PANIC ALLOWED block for each path stopped by an allow block.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCheck,
	}

	cmd.Flags().String("config", "", "config file (default: .nopanic.yaml or .nopanic.toml found upwards from --dir)")
	cmd.Flags().String("sinks", "", "comma-separated list of additional panic functions")
	cmd.Flags().Bool("fanout", false, "resolve interface method calls to every implementation")
	cmd.Flags().Bool("trust-stdlib", true, "never load standard library packages; only listed sinks in them are reported")
	cmd.Flags().String("deps-file", "", "read dependency load arguments written by the deps command")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	colorMode, err := cmd.Flags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	out := cmd.OutOrStdout()
	f, _ := out.(*os.File)
	style, err := newStyle(colorMode, f)
	if err != nil {
		return err
	}

	tgt, err := target(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, tgt.Dir)
	if err != nil {
		return err
	}
	sinks, err := cfg.SinkTable()
	if err != nil {
		return err
	}

	goroot, err := toolchainRoot(ctx, cmd)
	if err != nil {
		return err
	}

	std, err := loader.Stdlib(ctx, loader.Env(goroot, nil))
	if err != nil {
		return err
	}

	deps, err := dependencies(cmd, logger, tgt, goroot, cfg.TrustedStdlib(std))
	if err != nil {
		return err
	}
	logger.Debug("dependencies resolved", zap.Int("count", len(deps)))

	a := engine.New(tgt, deps, goroot,
		engine.WithLogger(logger),
		engine.WithOutput(out),
		engine.WithStyle(style),
		engine.WithSinks(sinks),
		engine.WithTerminal(cfg.Terminal(std)),
		engine.WithFanOut(cfg.InterfaceFanout),
	)
	if err := a.Run(ctx); err != nil {
		return err
	}

	if a.Failed() {
		return errFindings
	}

	return nil
}

func loadConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	var cfg *config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(dir)
	}
	if err != nil {
		return nil, err
	}

	sinks, err := cmd.Flags().GetString("sinks")
	if err != nil {
		return nil, fmt.Errorf("failed to get sinks flag: %w", err)
	}
	cfg.AddSinks(sinks)

	if cmd.Flags().Changed("fanout") {
		if cfg.InterfaceFanout, err = cmd.Flags().GetBool("fanout"); err != nil {
			return nil, fmt.Errorf("failed to get fanout flag: %w", err)
		}
	}

	if cmd.Flags().Changed("trust-stdlib") {
		if cfg.TrustStdlib, err = cmd.Flags().GetBool("trust-stdlib"); err != nil {
			return nil, fmt.Errorf("failed to get trust-stdlib flag: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// dependencies reads the --deps-file or discovers the dependencies of tgt.
// Packages in skip are left out of a discovered map.
func dependencies(cmd *cobra.Command, logger *zap.Logger, tgt model.BuildArgs, goroot string, skip map[string]bool) (model.DependencyMap, error) {
	path, err := cmd.Flags().GetString("deps-file")
	if err != nil {
		return nil, fmt.Errorf("failed to get deps-file flag: %w", err)
	}

	if path == "" {
		return depmap.Discover(cmd.Context(), tgt, goroot, skip)
	}

	f, err := depmap.Load(path)
	if err != nil {
		return nil, err
	}

	if f.Target.Dir != tgt.Dir || !slices.Equal(f.Target.Patterns, tgt.Patterns) {
		logger.Warn("dependency file was written for another target",
			zap.String("file", path),
			zap.Strings("recorded", f.Target.Patterns),
			zap.Strings("requested", tgt.Patterns),
		)
	}

	return f.Units, nil
}
