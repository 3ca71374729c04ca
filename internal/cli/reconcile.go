package cli

import (
	"io"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/murmurapp/murmur-server/internal/interaction"
)

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair like, bookmark and share relations",
		Long: `Scan every post and user and repair relations whose two sides disagree.

One-sided entries are resolved with the configured repair policy, entries
pointing at deleted records are removed, and counters are recomputed from
their sets. Posts are written before users.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rootOpts.withContainer(cmd, func(i do.Injector) error {
				reconciler := do.MustInvoke[*interaction.Reconciler](i)

				report, err := reconciler.Sweep(cmd.Context(), dryRun)
				if report != nil {
					if outErr := printSweepReport(newFormatter(rootOpts, cmd.OutOrStdout()), report); outErr != nil && err == nil {
						err = outErr
					}
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")

	return cmd
}

func printSweepReport(f *OutputFormatter, report *interaction.SweepReport) error {
	return f.Output(report, func(w io.Writer) error {
		l := &line{w: w}
		if report.DryRun {
			l.printf("Dry run: no records were written")
		}
		l.printf("Scanned %d users and %d posts", report.UsersScanned, report.PostsScanned)
		l.printf("  mirror repairs:      %d", report.MirrorRepairs)
		l.printf("  dangling removed:    %d", report.DanglingRemoved)
		l.printf("  counters fixed:      %d", report.CountersFixed)
		l.printf("  share counts fixed:  %d", report.ShareCountsFixed)
		verb := "Updated"
		if report.DryRun {
			verb = "Would update"
		}
		l.printf("%s %d posts and %d users", verb, report.PostsUpdated, report.UsersUpdated)
		return l.err
	})
}
