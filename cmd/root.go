package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/kmail2maildir/cmd/config"
	"github.com/mattsolo1/kmail2maildir/pkg/convert"
	"github.com/mattsolo1/kmail2maildir/pkg/fsaction"
	"github.com/mattsolo1/kmail2maildir/pkg/verify"
)

func NewRootCmd() *cobra.Command {
	var (
		cfgFile          string
		dryRun           bool
		removeIndexFiles bool
		runVerify        bool
		showReport       bool
		verbose          bool
	)

	cmd := &cobra.Command{
		Use:   "kmail2maildir [flags] FOLDER",
		Short: "Convert a KMail maildir tree to Maildir++",
		Long: `Convert a mailbox from KMail's maildir variant to the Maildir++
layout used by dovecot and courier.

KMail keeps the subfolders of a folder in a sibling ".<name>.directory"
container; Maildir++ flattens the hierarchy into dot-joined directory names
next to the mailbox root ("Work/Projects" becomes ".Work.Projects"). The
mailbox root itself is never renamed.

The mail server must not be accessing the mailbox while it converts.
Renames are not transactional: an interrupted run leaves a partially
converted tree, which a later run refuses to touch rather than guess at.

Examples:
  # preview without changing anything
  kmail2maildir --dry-run ~/Mail

  # convert and drop KMail's cache files
  kmail2maildir --remove-index-files ~/Mail

  # courier-style separator, with a summary
  kmail2maildir --hierarchy-separator : --report ~/Mail`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Init(cfgFile)
			cobra.CheckErr(viper.BindPFlag("hierarchy_separator", cmd.Flags().Lookup("hierarchy-separator")))
			cobra.CheckErr(viper.BindPFlag("merge_inbox", cmd.Flags().Lookup("merge-inbox")))

			logger := logrus.New()
			logger.SetOutput(os.Stderr)
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			} else {
				logger.SetLevel(logrus.WarnLevel)
			}

			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve folder path: %w", err)
			}

			opts := convert.Options{
				Root:               root,
				HierarchySeparator: viper.GetString("hierarchy_separator"),
				RemoveIndexFiles:   removeIndexFiles,
				MergeInbox:         viper.GetBool("merge_inbox"),
				IndexFilePatterns:  viper.GetStringSlice("index_file_patterns"),
			}

			fs := afero.NewOsFs()
			plan, err := convert.NewMapper(fs, logger).BuildPlan(opts)
			if err != nil {
				return err
			}
			if plan.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to do")
				return nil
			}

			executor := fsaction.New(fs, fsaction.Options{
				DryRun: dryRun,
				Out:    cmd.OutOrStdout(),
				Logger: logger,
			})
			if !dryRun {
				if err := executor.Check(plan); err != nil {
					return fmt.Errorf("pre-flight check failed: %w", err)
				}
			}

			report, err := executor.Run(plan)
			if err != nil {
				return err
			}

			var result *verify.Result
			if runVerify && !dryRun {
				result, err = verify.Mailbox(root, opts.HierarchySeparator, logger)
				if err != nil {
					return fmt.Errorf("verify: %w", err)
				}
				for _, problem := range result.Problems {
					logger.Warnf("verify: %s", problem)
				}
			}

			if showReport {
				summary := struct {
					Conversion *convert.Report `yaml:"conversion"`
					Verify     *verify.Result  `yaml:"verify,omitempty"`
				}{report, result}
				data, err := yaml.Marshal(summary)
				if err != nil {
					return fmt.Errorf("marshal report: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
			}

			if result != nil && !result.OK() {
				return fmt.Errorf("converted mailbox failed verification with %d problem(s)", len(result.Problems))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only print what would be done, don't change anything yet")
	cmd.Flags().BoolVar(&removeIndexFiles, "remove-index-files", false, "remove kmail's index files")
	cmd.Flags().String("hierarchy-separator", convert.DefaultHierarchySeparator,
		fmt.Sprintf("separator used for maildir++ subfolders (defaults to %q)", convert.DefaultHierarchySeparator))
	cmd.Flags().Bool("merge-inbox", true, "move kmail's inbox folder contents into the mailbox root")
	cmd.Flags().BoolVar(&runVerify, "verify", false, "check converted folders for valid maildir structure")
	cmd.Flags().BoolVar(&showReport, "report", false, "print a YAML conversion summary")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/kmail2maildir/config.yaml)")

	cmd.AddCommand(NewVersionCmd())

	return cmd
}
