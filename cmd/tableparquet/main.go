// Command tableparquet converts tabular files into Parquet files.
package main

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/tabwriter"
	_ "time/tzdata"

	"github.com/nao1215/tableparquet"
	"github.com/nao1215/tableparquet/sample"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags  flagValues
	cfg    *Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "tableparquet",
		Short: "Convert tabular data into Parquet files",
		Long: `tableparquet converts CSV, TSV, LTSV and XLSX files, optionally compressed
with gzip, bzip2, xz, zstd or lz4, into Parquet files written in fixed-size row groups.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, &a.flags)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "path to a YAML configuration file")
	pf.StringVar(&a.flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.logFormat, "log-format", "console", "log format (console, json)")

	root.AddCommand(
		a.newDemoCmd(),
		a.newConvertCmd(),
		a.newSchemaCmd(),
		newVersionCmd(),
	)
	return root
}

// addConversionFlags registers the flags that configure the converter.
func (a *app) addConversionFlags(cmd *cobra.Command, defaultOutput string) {
	f := cmd.Flags()
	f.StringVarP(&a.flags.output, "output", "o", defaultOutput, "output Parquet file")
	f.IntVar(&a.flags.rowGroupSize, "row-group-size", tableparquet.DefaultRowGroupSize, "number of rows per row group")
	f.StringVar(&a.flags.datetimeLocation, "datetime-location", "UTC", "IANA location of datetimes without a UTC offset")
	f.BoolVar(&a.flags.strictTypes, "strict-types", false, "fail on column types without a columnar mapping")
}

func (a *app) newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write a generated sample table as a Parquet file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed := a.flags.seed
			if !cmd.Flags().Changed("seed") {
				seed = rand.Uint64()
			}
			var key [32]byte
			binary.LittleEndian.PutUint64(key[:], seed)

			table, err := sample.Generate(rand.NewChaCha8(key))
			if err != nil {
				return err
			}
			a.logger.Debug("sample table generated", zap.Uint64("seed", seed), zap.Int("rows", table.NumRows()))

			return a.convert(cmd, table, a.flags.output)
		},
	}
	a.addConversionFlags(cmd, "example.parquet")
	cmd.Flags().Uint64Var(&a.flags.seed, "seed", 0, "seed of the random scores and session ids (random if unset)")
	return cmd
}

func (a *app) newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Convert a tabular file into a Parquet file",
		Long: `Convert reads a CSV, TSV, LTSV or XLSX file, infers the column types and
writes the rows as a Parquet file. The file type is detected from the extension.

Example:
  tableparquet convert users.csv.gz --output users.parquet --row-group-size 1000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			table, err := readTableFile(input)
			if err != nil {
				return err
			}
			a.logger.Debug("input read",
				zap.String("path", input),
				zap.Int("columns", len(table.Columns)),
				zap.Int("rows", table.NumRows()))

			output := a.flags.output
			if output == "" {
				output = defaultOutputPath(input)
			}
			return a.convert(cmd, table, output)
		},
	}
	a.addConversionFlags(cmd, "")
	return cmd
}

func (a *app) newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <input>",
		Short: "Print the Parquet schema a tabular file would be written with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readTableFile(args[0])
			if err != nil {
				return err
			}
			schema, err := tableparquet.BuildSchema(table)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tTYPE\tPARQUET")
			for _, f := range schema.Fields() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, f.Source, f.Type)
			}
			return tw.Flush()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tableparquet v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// convert writes table to output with the configured converter.
func (a *app) convert(cmd *cobra.Command, table *tableparquet.Table, output string) error {
	opts, err := a.cfg.converterOptions()
	if err != nil {
		return err
	}
	c, err := tableparquet.NewConverter(append(opts, tableparquet.WithLogger(a.logger))...)
	if err != nil {
		return err
	}

	result, err := c.ConvertFile(output, table)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows in %d row groups to %s\n", result.Rows, result.RowGroups, output)
	return nil
}

// readTableFile reads the table stored in the file at path, detecting its
// type from the extension.
func readTableFile(path string) (*tableparquet.Table, error) {
	fileType := tableparquet.DetectFileType(path)
	if fileType == tableparquet.Unsupported {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}

	f, err := os.Open(path) //nolint:gosec // path is given by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	table, err := tableparquet.ReadTable(f, fileType)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	table.Name = tableName(path)
	return table, nil
}

// knownExts are the extensions stripped from an input path to name its table.
var knownExts = []string{
	tableparquet.ExtGZ, tableparquet.ExtBZ2, tableparquet.ExtXZ, tableparquet.ExtZSTD, tableparquet.ExtLZ4,
	tableparquet.ExtCSV, tableparquet.ExtLTSV, tableparquet.ExtTSV, tableparquet.ExtXLSX,
}

// tableName returns the file name of path without its data and compression
// extensions.
func tableName(path string) string {
	name := filepath.Base(path)
	for _, ext := range knownExts {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
		}
	}
	return name
}

// defaultOutputPath returns the input path with its extensions replaced by .parquet.
func defaultOutputPath(input string) string {
	return filepath.Join(filepath.Dir(input), tableName(input)+".parquet")
}
