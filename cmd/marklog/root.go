package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/marklog/config"
	"go.jacobcolvin.com/marklog/log"
	"go.jacobcolvin.com/marklog/version"
)

// app holds state shared by the subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	log    *log.Config
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: log.NewConfig()}

	root := &cobra.Command{
		Use:           "marklog",
		Short:         "Check and exercise marklog logging configurations",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.SetOut(stdout)
	root.SetErr(stderr)

	a.log.RegisterFlags(root.PersistentFlags())

	err := a.log.RegisterCompletions(root)
	if err != nil {
		fmt.Fprintf(stderr, "register completions: %v\n", err)
	}

	root.AddCommand(
		a.validateCmd(),
		a.schemaCmd(),
		a.markersCmd(),
		a.demoCmd(),
		a.versionCmd(),
	)

	return root
}

// diagnostics returns the logger for marklog's own messages, built from the
// log flags.
func (a *app) diagnostics() (*slog.Logger, error) {
	h, err := a.log.NewHandler(a.stderr, log.WithAddSource(false))
	if err != nil {
		return nil, err
	}

	return slog.New(h), nil
}

func yamlFileCompletion(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "validate <file.yaml>",
		Short:             "Check a logging configuration file",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: yamlFileCompletion,
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "%s: ok (%d markers, %d outputs)\n", args[0], len(cfg.Markers), len(cfg.Outputs))

			return nil
		},
	}
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for logging configuration files",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			out, err := json.MarshalIndent(config.Schema(), "", "  ")
			if err != nil {
				return fmt.Errorf("encoding schema: %w", err)
			}

			_, err = fmt.Fprintf(a.stdout, "%s\n", out)
			if err != nil {
				return fmt.Errorf("writing schema: %w", err)
			}

			return nil
		},
	}
}

func (a *app) markersCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "markers <file.yaml>",
		Short:             "Print the marker hierarchy declared in a configuration file",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: yamlFileCompletion,
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			var sb strings.Builder

			for _, m := range cfg.Markers {
				sb.WriteString(m.Name)
				sb.WriteByte('\n')

				for _, child := range m.Children {
					sb.WriteString("  ")
					sb.WriteString(child)
					sb.WriteByte('\n')
				}
			}

			_, err = io.WriteString(a.stdout, sb.String())
			if err != nil {
				return fmt.Errorf("writing markers: %w", err)
			}

			return nil
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			info := version.Get()

			if !asJSON {
				_, err := io.WriteString(a.stdout, info.String())

				return err
			}

			out, err := json.Marshal(info)
			if err != nil {
				return fmt.Errorf("encoding version: %w", err)
			}

			_, err = fmt.Fprintf(a.stdout, "%s\n", out)

			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}
