// Package cli wires the gravityyaml command line to the import pipeline.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"gravityyaml/pkg/config"
	"gravityyaml/pkg/gravityfile"
	"gravityyaml/pkg/importer"
	"gravityyaml/pkg/logger"
	"gravityyaml/pkg/store"
	"gravityyaml/pkg/version"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitDefault      = 1
	ExitDatabase     = 2
	ExitConfigFile   = 3
	ExitFileNotFound = 4
)

type app struct {
	settings *config.Settings
	log      *slog.Logger
}

// Execute runs the command line with args and returns the process exit code.
// Fatal errors are printed to stdout as a single line unless debug mode is
// enabled, in which case the error is raised as a panic.
func Execute(args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return ExitOK
	}

	if a.settings != nil && a.settings.Debug {
		panic(err)
	}
	_, _ = fmt.Fprintf(stdout, "FATAL - %s\n", err)
	return ExitCode(err)
}

// ExitCode maps an error returned by the pipeline to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, gravityfile.ErrNotFound), errors.Is(err, store.ErrSchemaNotFound):
		return ExitFileNotFound
	case errors.Is(err, gravityfile.ErrParse), errors.Is(err, gravityfile.ErrValidation):
		return ExitConfigFile
	case errors.Is(err, store.ErrInit), errors.Is(err, store.ErrWrite):
		return ExitDatabase
	default:
		return ExitDefault
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gravityyaml",
		Short:         "Store Pi-hole gravity.db config in a YAML file",
		Long:          "gravityyaml rebuilds the Pi-hole gravity.db adlists and groups from a gravity.yaml file.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Setup(cmd.Flags())
			if err != nil {
				return err
			}
			a.settings = settings
			a.log = logger.Setup(settings.LogLevel, settings.LogFile)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runImport(cmd.Context())
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Check gravity.yaml without touching the database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runValidate(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				cmd.Println(version.String())
			},
		},
	)

	return root
}

func (a *app) loadDocument() (*gravityfile.Document, []gravityfile.Issue, error) {
	doc, err := gravityfile.Load(a.settings.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	issues := doc.Lint()
	for _, issue := range issues {
		a.log.Warn("config file issue", "field", issue.Field, "value", issue.Value, "issue", issue.Message)
	}
	a.log.Debug("loaded config file", "path", a.settings.ConfigPath, "groups", len(doc.Groups), "adlists", len(doc.Adlists), "issues", len(issues))
	return doc, issues, nil
}

func (a *app) runValidate(out io.Writer) error {
	doc, issues, err := a.loadDocument()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s: %d groups, %d adlists, %d issues\n",
		a.settings.ConfigPath, len(doc.Groups), len(doc.Adlists), len(issues))
	return err
}

func (a *app) runImport(ctx context.Context) (err error) {
	doc, _, err := a.loadDocument()
	if err != nil {
		return err
	}

	initializer := &store.Initializer{SchemaPath: a.settings.SchemaPath, Log: a.log}
	db, err := initializer.Initialize(a.settings.DatabaseDir)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: closing database: %w", store.ErrWrite, closeErr)
		}
	}()

	report, err := importer.New(a.log).Import(ctx, doc, db)
	if err != nil {
		return err
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrWrite, err)
	}
	a.log.Info("import complete",
		"database", db.Path(),
		"groups", report.Groups,
		"adlists", report.Adlists,
		"memberships", report.Memberships,
		"warnings", len(report.Warnings),
		"stored_groups", counts.Groups,
		"stored_adlists", counts.Adlists,
		"stored_memberships", counts.Memberships,
	)
	return nil
}
