package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mpyw/nopanic/internal/model"
	"github.com/mpyw/nopanic/internal/report"
)

// toolchainRoot returns the --goroot flag or asks the go command.
func toolchainRoot(ctx context.Context, cmd *cobra.Command) (string, error) {
	goroot, err := cmd.Flags().GetString("goroot")
	if err != nil {
		return "", fmt.Errorf("failed to get goroot flag: %w", err)
	}
	if goroot != "" {
		return goroot, nil
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, "go", "env", "GOROOT")
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("%w: go env GOROOT: %w: %s", model.ErrConfiguration, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// target builds the load arguments of the package pattern args names.
func target(cmd *cobra.Command, args []string) (model.BuildArgs, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return model.BuildArgs{}, fmt.Errorf("failed to get dir flag: %w", err)
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return model.BuildArgs{}, err
	}

	buildFlags, err := cmd.Flags().GetStringSlice("build-flags")
	if err != nil {
		return model.BuildArgs{}, fmt.Errorf("failed to get build-flags flag: %w", err)
	}

	pattern := "."
	if len(args) > 0 {
		pattern = args[0]
	}

	return model.BuildArgs{Patterns: []string{pattern}, Dir: dir, BuildFlags: buildFlags}, nil
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	return cfg.Build()
}

// newStyle colors the block markers for mode "on", or for "auto" when out
// is a terminal.
func newStyle(mode string, out *os.File) (report.Style, error) {
	var useColor bool
	switch mode {
	case "on":
		useColor = true
	case "off":
	case "auto":
		useColor = out != nil && (isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()))
	default:
		return report.Style{}, fmt.Errorf("unknown color mode %q (auto|on|off)", mode)
	}

	if !useColor {
		return report.Style{}, nil
	}

	panicColor := color.New(color.FgRed, color.Bold)
	panicColor.EnableColor()
	allowColor := color.New(color.FgYellow)
	allowColor.EnableColor()

	return report.Style{
		Panic: panicColor.Sprint,
		Allow: allowColor.Sprint,
	}, nil
}
