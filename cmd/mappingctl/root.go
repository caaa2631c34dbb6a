package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/lychee-technology/resultmap"
	"github.com/lychee-technology/resultmap/factory"
	"github.com/lychee-technology/resultmap/internal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand creates the mappingctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "mappingctl",
		Short: "Inspect and run named result set mappings",
		Long: color.CyanString(`mappingctl - result set mapping toolkit

Loads entity, result set mapping and named query definitions from a directory
or an S3 bucket, resolves them against a dialect and runs named queries.

Configuration comes from mappingctl.yaml and RESULTMAP_* environment variables,
e.g. RESULTMAP_DIALECT_NAME=sqlserver or RESULTMAP_DEFINITIONS_DIRECTORY=./defs.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a config file")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewDialectsCommand())
	rootCmd.AddCommand(NewValidateCommand(opts))
	rootCmd.AddCommand(NewDescribeCommand(opts))
	rootCmd.AddCommand(NewQueryCommand(opts))
	rootCmd.AddCommand(NewCheckCommand(opts))
	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			titleColor := color.New(color.FgCyan, color.Bold)
			w := cmd.OutOrStdout()
			titleColor.Fprint(w, "mappingctl version: ")
			fmt.Fprintln(w, Version)
			titleColor.Fprint(w, "Git commit: ")
			fmt.Fprintln(w, GitCommit)
		},
	}
}

// NewDialectsCommand lists the built-in dialects and their nationalization support.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List built-in dialects",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			nameColor := color.New(color.FgGreen, color.Bold)
			for _, name := range internal.DialectNames() {
				dialect, err := internal.LookupDialect(name)
				if err != nil {
					return err
				}
				nameColor.Fprintf(w, "%-12s", name)
				support := dialect.NationalizationSupport()
				if support == nil {
					color.New(color.FgYellow).Fprintln(w, "nationalization unsupported")
					continue
				}
				fmt.Fprintf(w, "nationalization %s (varchar=%s, clob=%s)\n",
					support.Name, support.VarcharVariantCode, support.ClobVariantCode)
			}
			return nil
		},
	}
}

// NewValidateCommand boots the session factory, which loads and resolves every definition.
func NewValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and resolve every definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := setup(opts)
			if err != nil {
				return err
			}
			config.Resolution.ValidateOnBoot = true
			sf, err := bootSessionFactory(cmd.Context(), config)
			if err != nil {
				return err
			}
			defer sf.Close()

			repo := sf.NamedQueryRepository()
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(),
				"✓ %d entities, %d result set mappings, %d named queries resolved against %s\n",
				len(sf.DomainModel().EntityNames()),
				len(repo.ResultSetMappingNames()),
				len(repo.QueryNames()),
				sf.Dialect().Name())
			return nil
		},
	}
}

// NewDescribeCommand prints the resolved builders of one or all mappings.
func NewDescribeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [mapping...]",
		Short: "Show resolved result set mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := setup(opts)
			if err != nil {
				return err
			}
			sf, err := bootSessionFactory(cmd.Context(), config)
			if err != nil {
				return err
			}
			defer sf.Close()

			names := args
			if len(names) == 0 {
				names = sf.NamedQueryRepository().ResultSetMappingNames()
			}
			for _, name := range names {
				mapping, err := sf.ResolveResultSetMapping(name, nil)
				if err != nil {
					return err
				}
				describeMapping(cmd.OutOrStdout(), mapping)
			}
			return nil
		},
	}
}

// NewQueryCommand runs a named query and prints each mapped row as JSON.
func NewQueryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <name> [args...]",
		Short: "Execute a named query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := setup(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			sf, err := bootSessionFactory(ctx, config)
			if err != nil {
				return err
			}
			defer sf.Close()

			source, closeSource, err := openRowSource(ctx, config.Database)
			if err != nil {
				return err
			}
			defer closeSource()

			params := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				params = append(params, a)
			}
			result, err := sf.ExecuteNamedQuery(ctx, source, args[0], params...)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, row := range result.Rows {
				if err := enc.Encode(row); err != nil {
					return err
				}
			}
			zap.S().Infow("query complete", "query", result.Query, "rows", len(result.Rows),
				"querySpaces", strings.Join(result.QuerySpaces, ","))
			return nil
		},
	}
}

// NewCheckCommand probes the configured database and, when set, the definitions bucket.
func NewCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check database and definition bucket connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := setup(opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ok := color.New(color.FgGreen)
			w := cmd.OutOrStdout()

			source, closeSource, err := openRowSource(ctx, config.Database)
			if err != nil {
				return err
			}
			defer closeSource()
			if err := internal.CheckRowSource(ctx, source, config.Database.Timeout); err != nil {
				return err
			}
			ok.Fprintf(w, "✓ database (%s)\n", config.Database.Driver)

			if s3cfg := config.Definitions.S3; s3cfg.Enabled() {
				client, err := internal.NewS3Client(ctx, s3cfg)
				if err != nil {
					return err
				}
				if err := internal.CheckDefinitionBucket(ctx, client, s3cfg.Bucket, config.Database.Timeout); err != nil {
					return err
				}
				ok.Fprintf(w, "✓ definition bucket s3://%s\n", s3cfg.Bucket)
			}
			return nil
		},
	}
}

func setup(opts *rootOptions) (*resultmap.Config, error) {
	config, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(config.Logging)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return config, nil
}

func bootSessionFactory(ctx context.Context, config *resultmap.Config) (resultmap.SessionFactory, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return factory.NewSessionFactoryWithConfig(config,
		factory.WithContext(ctx),
		factory.WithFallbackInstantiator(tupleInstantiator))
}

// tupleInstantiator lets the CLI resolve constructor results without compiled-in types.
func tupleInstantiator(targetType string) (resultmap.Instantiator, bool) {
	return resultmap.Instantiator{
		Arity: resultmap.VariadicArity,
		New: func(args []any) (any, error) {
			return map[string]any{"type": targetType, "arguments": args}, nil
		},
	}, true
}

func describeMapping(w io.Writer, mapping *resultmap.ResultSetMapping) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "%s\n", mapping.Name())
	spaces := mapping.QuerySpaces()
	sort.Strings(spaces)
	fmt.Fprintf(w, "  query spaces: %s\n", strings.Join(spaces, ", "))
	for i, b := range mapping.ResultBuilders() {
		describeBuilder(w, b, fmt.Sprintf("  [%d] ", i), "      ")
	}
}

func describeBuilder(w io.Writer, b resultmap.ResultBuilder, prefix, indent string) {
	kindColor := color.New(color.FgGreen)
	switch rb := b.(type) {
	case *resultmap.EntityResultBuilder:
		fmt.Fprint(w, prefix)
		kindColor.Fprint(w, "entity ")
		fmt.Fprintln(w, rb.Descriptor().Name())
		for _, attr := range rb.Descriptor().AttributeMappings() {
			column, _ := rb.ColumnFor(attr.Name)
			fmt.Fprintf(w, "%s%s <- %s (%s)\n", indent, attr.Name, column, attr.JdbcMapping.TypeCode)
		}
	case *resultmap.ScalarResultBuilder:
		fmt.Fprint(w, prefix)
		kindColor.Fprint(w, "scalar ")
		fmt.Fprintf(w, "%s (%s)\n", rb.Column(), rb.JdbcMapping().TypeCode)
	case *resultmap.ConstructorResultBuilder:
		fmt.Fprint(w, prefix)
		kindColor.Fprint(w, "constructor ")
		fmt.Fprintln(w, rb.TargetType())
		for i, arg := range rb.Arguments() {
			describeBuilder(w, arg, fmt.Sprintf("%s[%d] ", indent, i), indent+"    ")
		}
	}
}
