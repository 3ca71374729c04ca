// Package cli implements murmurctl, the operator command line for a Murmur data directory.
package cli

import (
	"fmt"
	"slices"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/murmurapp/murmur-server/internal/di"
	"github.com/murmurapp/murmur-server/internal/di/providers"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataPath     string
	StoreBackend string
	EnvFile      string
	LogLevel     string
	Format       string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for murmurctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "murmurctl",
		Short: "murmurctl - operate a Murmur data directory",
		Long:  "Seed demo data, repair like and bookmark relations, and run list queries against a Murmur record store.",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DataPath, "data-path", "", "record store directory (default: DATA_PATH or ~/Murmur/data)")
	cmd.PersistentFlags().StringVar(&opts.StoreBackend, "store-backend", "", "record store backend (badger|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to .env file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))

	return cmd
}

// configArgs translates the global flags into config.Load arguments.
func (o *RootOptions) configArgs() []string {
	args := []string{"-env-file", o.EnvFile}
	if o.DataPath != "" {
		args = append(args, "-data-path", o.DataPath)
	}
	if o.StoreBackend != "" {
		args = append(args, "-store-backend", o.StoreBackend)
	}
	if o.LogLevel != "" {
		args = append(args, "-log-level", o.LogLevel)
	}
	return args
}

// withContainer bootstraps the services, runs fn and shuts everything down.
// Shutdown problems are reported on stderr and do not fail the command.
func (o *RootOptions) withContainer(cmd *cobra.Command, fn func(do.Injector) error) error {
	injector := di.NewContainer(o.configArgs())
	defer func() {
		if err := injector.Shutdown(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "shutdown: %v\n", err)
		}
	}()

	if err := di.Bootstrap(injector); err != nil {
		return err
	}
	return fn(injector)
}

func storeOf(i do.Injector) *providers.StoreHandle {
	return do.MustInvoke[*providers.StoreHandle](i)
}
