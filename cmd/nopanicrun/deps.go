package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mpyw/nopanic/internal/depmap"
	"github.com/mpyw/nopanic/internal/loader"
)

func newDepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps [flags] [package]",
		Short: "Record the load arguments of every dependency of a package",
		Long: `Deps lists the dependencies of the package (default ".") and
writes the arguments that load each of them, for later use with check
--deps-file. Standard library packages are included only with
--trust-stdlib=false. Each dependency name is printed on its own line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDeps,
	}

	cmd.Flags().StringP("output", "o", "", "output file (default: "+depmap.DefaultPath+" under --dir)")
	cmd.Flags().Bool("trust-stdlib", true, "leave standard library packages out of the file")

	return cmd
}

func runDeps(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tgt, err := target(cmd, args)
	if err != nil {
		return err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	if output == "" {
		output = filepath.Join(tgt.Dir, depmap.DefaultPath)
	}

	goroot, err := toolchainRoot(ctx, cmd)
	if err != nil {
		return err
	}

	trust, err := cmd.Flags().GetBool("trust-stdlib")
	if err != nil {
		return fmt.Errorf("failed to get trust-stdlib flag: %w", err)
	}

	var std map[string]bool
	if trust {
		if std, err = loader.Stdlib(ctx, loader.Env(goroot, nil)); err != nil {
			return err
		}
	}

	deps, err := depmap.Discover(ctx, tgt, goroot, std)
	if err != nil {
		return err
	}

	if err := depmap.Save(output, &depmap.File{Target: tgt, Units: deps}); err != nil {
		return err
	}

	for _, name := range depmap.Names(deps) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
	}

	return nil
}
