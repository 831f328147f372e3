package cmd

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"

	"github.com/sebas5384/now-builders/internal/builder"
	"github.com/sebas5384/now-builders/internal/cache"
	"github.com/sebas5384/now-builders/internal/config"
	"github.com/sebas5384/now-builders/internal/files"
	"github.com/sebas5384/now-builders/internal/httpstore"
	"github.com/sebas5384/now-builders/internal/launcher"
	"github.com/sebas5384/now-builders/internal/logging"
	"github.com/sebas5384/now-builders/internal/npm"
	"github.com/sebas5384/now-builders/internal/output"
	"github.com/sebas5384/now-builders/internal/progress"
	"github.com/sebas5384/now-builders/internal/s3"
	"github.com/sebas5384/now-builders/internal/service"
)

const npmAuthTokenEnv = "NPM_AUTH_TOKEN"

type buildParams struct {
	configParams
	entrypoint    string
	workPath      string
	outputDir     string
	filesManifest string
	workers       int
	logLevel      logging.Level
	logFormat     string
	noProgress    bool
}

func init() {
	params := buildParams{logLevel: logging.Info, logFormat: logging.FormatText}

	build := &cobra.Command{
		Use:   "build [source directory]",
		Short: "Build a Next.js project into lambdas and static files",
		Long: `Build a Next.js project into lambdas and static files.

The source directory defaults to the current directory. With --files, the
input is read from a JSON file manifest instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "."
			if len(args) > 0 {
				src = args[0]
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}
			params.override(cmd.Flags(), cfg)
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			return runBuild(ctx, cfg, params, src, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	fs := build.Flags()
	params.addFlags(fs)
	fs.StringVarP(&params.entrypoint, "entrypoint", "e", config.DefaultEntrypoint, "Entrypoint of the project, relative to the source")
	fs.StringVar(&params.workPath, "work-path", "", "Empty directory to build in (default is a temporary directory)")
	fs.StringVarP(&params.outputDir, "output", "o", config.DefaultOutputDir, "Directory the build output is written to")
	fs.StringVar(&params.filesManifest, "files", "", "Path to a JSON file manifest to read the input from")
	fs.IntVar(&params.workers, "workers", 0, "Number of lambdas packaged concurrently (default is the number of CPUs)")
	fs.Var(enumflag.New(&params.logLevel, "level", logging.LevelIds, enumflag.EnumCaseInsensitive), "log-level", "Log level: debug, info, warn, error")
	fs.StringVar(&params.logFormat, "log-format", logging.FormatText, "Log format: text or json")
	fs.BoolVar(&params.noProgress, "no-progress", false, "Disable the progress bar")

	RootCommand.AddCommand(build)
}

// override applies the flags set on the command line over the configuration.
func (p *buildParams) override(fs *pflag.FlagSet, cfg *config.Root) {
	if fs.Changed("entrypoint") || cfg.Entrypoint == "" {
		cfg.Entrypoint = p.entrypoint
	}
	if fs.Changed("work-path") {
		cfg.WorkPath = p.workPath
	}
	if fs.Changed("output") || cfg.OutputDir == "" {
		cfg.OutputDir = p.outputDir
	}
	if fs.Changed("workers") {
		cfg.Workers = p.workers
	}
}

func runBuild(ctx context.Context, cfg *config.Root, p buildParams, src string, stdout, stderr io.Writer) error {
	if p.logFormat != logging.FormatText && p.logFormat != logging.FormatJSON {
		return fmt.Errorf("unknown log format %q", p.logFormat)
	}
	log := logging.NewLogger(logging.Config{Level: p.logLevel, Format: p.logFormat, Output: stderr})

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout))
		defer cancel()
	}

	input, err := readInput(src, p.filesManifest, cfg.Ignore)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	launcherFiles, err := launcher.Files(cfg.LauncherDir)
	if err != nil {
		return err
	}

	workPath, cleanup, err := prepareWorkPath(cfg.WorkPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Warnf("failed to remove work directory %s: %v", workPath, err)
		}
	}()

	bar := progress.New(stderr, "packaging lambdas", !p.noProgress)

	b := builder.New().
		WithStore(store).
		WithRunner(&npm.Runner{Npm: cfg.Npm, Logger: log}).
		WithLauncher(launcherFiles).
		WithNpmAuthToken(cmp.Or(os.Getenv(npmAuthTokenEnv), cfg.NpmAuthToken.Value())).
		WithRegistry(cfg.Registry).
		WithBuildScript(cfg.BuildScript).
		WithWorkers(cfg.Workers).
		WithLogger(log).
		WithProgress(bar)

	w := service.NewBuildWorker(b, builder.Params{Files: input, Entrypoint: cfg.Entrypoint, WorkPath: workPath}, cfg.OutputDir, log).
		WithStore(store).
		WithWorkers(cfg.Workers)

	if cfg.Publish != nil {
		publisher, err := s3.New(ctx, *cfg.Publish.AmazonS3)
		if err != nil {
			return err
		}
		w = w.WithPublisher(publisher, "")
	}

	status := w.Execute(ctx)
	if status.State != service.BuildStateSuccess {
		return fmt.Errorf("build failed (%v): %s", status.State, status.Message)
	}

	printSummary(stdout, w.Manifest())
	return nil
}

func readInput(src, manifest string, ignore []string) (files.Files, error) {
	if manifest == "" {
		return files.FromDir(src, ignore)
	}
	bs, err := os.ReadFile(manifest)
	if err != nil {
		return nil, err
	}
	return files.ParseManifest(bs)
}

func newStore(ctx context.Context, cfg *config.Root) (files.Store, error) {
	if cfg.Store == nil {
		return nil, nil
	}

	var next files.Store
	switch {
	case cfg.Store.AmazonS3 != nil:
		s, err := s3.New(ctx, *cfg.Store.AmazonS3)
		if err != nil {
			return nil, err
		}
		next = s
	case cfg.Store.HTTP != nil:
		next = httpstore.New(*cfg.Store.HTTP)
	}

	c, err := cache.New(next, cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// prepareWorkPath returns an empty directory to build in and the function
// removing what this build created.
func prepareWorkPath(dir string) (string, func() error, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "now-next-")
		if err != nil {
			return "", nil, err
		}
		return tmp, func() error { return os.RemoveAll(tmp) }, nil
	}

	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, err
		}
	case err != nil:
		return "", nil, err
	case len(entries) > 0:
		return "", nil, fmt.Errorf("work path %s is not empty", dir)
	}
	return dir, func() error { return nil }, nil
}

func printSummary(w io.Writer, m *output.Manifest) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Path", "Type", "Size"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	paths := make([]string, 0, len(m.Output))
	for p := range m.Output {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	for _, p := range paths {
		e := m.Output[p]
		table.Append([]string{p, e.Type, humanize.IBytes(uint64(e.Size))})
	}
	table.Render()
}
