package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/epoch-iith/qmashup/internal/config"
	"github.com/epoch-iith/qmashup/internal/di"
	"github.com/epoch-iith/qmashup/internal/modules/library"
	"github.com/epoch-iith/qmashup/internal/modules/mashup"
	"github.com/epoch-iith/qmashup/internal/modules/operator"
	"github.com/epoch-iith/qmashup/internal/modules/pathing"
	"github.com/epoch-iith/qmashup/pkg/logger"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "qwalk",
		Short:        "Generate quantum-walk mashups from the local graph library",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newImportCmd(), newRunCmd(), newSpectrumCmd())
	return rootCmd
}

// withContainer loads configuration, wires the application and hands the
// container to fn. Logs go to stderr so stdout carries only results.
func withContainer(ctx context.Context, fn func(*di.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
		Output: os.Stderr,
	})

	container, _, err := di.Wire(ctx, cfg, log.Level(zerolog.WarnLevel))
	if err != nil {
		return err
	}
	defer container.Close()

	return fn(container)
}

func newImportCmd() *cobra.Command {
	var name string
	var symmetrize bool

	cmd := &cobra.Command{
		Use:   "import [graph.json]",
		Short: "Import a compatibility graph and its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			var req library.ImportRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			if name != "" {
				req.Name = name
			}
			if symmetrize {
				req.Symmetrize = true
			}

			return withContainer(cmd.Context(), func(c *di.Container) error {
				g, err := c.GraphService.Import(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), g.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Override the graph name")
	cmd.Flags().BoolVar(&symmetrize, "symmetrize", false, "Symmetrize the adjacency before validation")
	return cmd
}

func newRunCmd() *cobra.Command {
	var req mashup.Request
	var selection, shortPath string
	var noise, bio float64
	var memory int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a mashup run and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Selection = pathing.Selection(selection)
			req.ShortPath = pathing.ShortPathPolicy(shortPath)
			if cmd.Flags().Changed("noise") {
				req.Noise = &noise
			}
			if cmd.Flags().Changed("bio") {
				req.Bio = &bio
			}
			if cmd.Flags().Changed("memory") {
				req.MemoryWindow = &memory
			}

			return withContainer(cmd.Context(), func(c *di.Container) error {
				run, err := c.MashupService.Generate(cmd.Context(), req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), run)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.GraphID, "graph", "", "Graph ID")
	flags.StringVar(&req.Variant, "variant", mashup.VariantApp, "Walk variant")
	flags.IntVar(&req.Start, "start", 0, "Start node")
	flags.IntVar(&req.Steps, "steps", 0, "Evolution steps (0 uses the configured default)")
	flags.Float64Var(&req.Dt, "dt", 0, "Time step (0 uses the configured default)")
	flags.Float64Var(&noise, "noise", 0, "Decoherence strength in [0,1]")
	flags.Float64Var(&bio, "bio", 0, "Bio perturbation strength in [0,1]")
	flags.IntVar(&req.Length, "length", 0, "Path length (0 uses the configured default)")
	flags.StringVar(&selection, "selection", "", "Node selection: argmax or sample")
	flags.Uint64Var(&req.Seed, "seed", 0, "Sampling seed")
	flags.IntVar(&memory, "memory", 0, "Memory window")
	flags.StringVar(&shortPath, "short-path", "", "Exhausted trajectory policy: truncate or error")
	flags.BoolVar(&req.Export, "export", false, "Export the run to the configured bucket")
	_ = cmd.MarkFlagRequired("graph")
	return cmd
}

func newSpectrumCmd() *cobra.Command {
	var mode string
	var negate bool

	cmd := &cobra.Command{
		Use:   "spectrum [graph-id]",
		Short: "Print the eigenvalue spectrum of a graph's operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := operator.Options{Mode: operator.Mode(mode), NegateAdjacency: negate}
			return withContainer(cmd.Context(), func(c *di.Container) error {
				spectrum, err := c.GraphService.Spectrum(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), spectrum)
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(operator.ModeLaplacian), "Operator mode: laplacian or adjacency")
	cmd.Flags().BoolVar(&negate, "negate", false, "Use H = -A in adjacency mode")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
