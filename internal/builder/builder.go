// Package builder turns a Next.js source tree into per-page lambdas and the
// static assets served next to them.
package builder

import (
	"context"
	"errors"
	"maps"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/sebas5384/now-builders/internal/files"
	"github.com/sebas5384/now-builders/internal/lambda"
	"github.com/sebas5384/now-builders/internal/launcher"
	"github.com/sebas5384/now-builders/internal/logging"
	"github.com/sebas5384/now-builders/internal/metrics"
	"github.com/sebas5384/now-builders/internal/npm"
	"github.com/sebas5384/now-builders/internal/pool"
	"github.com/sebas5384/now-builders/internal/progress"
)

const (
	DefaultRegistry    = "//registry.npmjs.org/"
	DefaultBuildScript = "now-build"

	Handler = "now__launcher.launcher"
	Runtime = "nodejs8.10"

	// PageFile is the name of the page module inside every lambda.
	PageFile = "page.js"

	npmrcFile = ".npmrc"
)

// ScaffoldPages are framework pages that never serve a route by themselves.
var ScaffoldPages = []string{"_app.js", "_error.js", "_document.js"}

// Runner installs dependencies and runs package scripts in a directory.
type Runner interface {
	Install(ctx context.Context, dir string) error
	RunScript(ctx context.Context, dir, script string) error
}

// Params are the inputs of a single build.
type Params struct {
	Files      files.Files
	Entrypoint string
	WorkPath   string
}

// Builder runs npm builds of Next.js projects and assembles their output.
type Builder struct {
	store        files.Store
	runner       Runner
	packager     lambda.Packager
	launcher     files.Files
	npmAuthToken string
	registry     string
	buildScript  string
	workers      int
	log          *logging.Logger
	bar          *progress.Bar
}

// New returns a Builder using the default registry, build script and one
// worker per CPU.
func New() *Builder {
	return &Builder{
		registry:    DefaultRegistry,
		buildScript: DefaultBuildScript,
		workers:     runtime.NumCPU(),
		log:         logging.NewNoOpLogger(),
	}
}

// WithStore sets the store resolving content-addressable input files.
func (b *Builder) WithStore(s files.Store) *Builder {
	b.store = s
	return b
}

// WithRunner sets the package manager. Defaults to npm from PATH.
func (b *Builder) WithRunner(r Runner) *Builder {
	b.runner = r
	return b
}

// WithPackager sets the lambda packager. Defaults to a zip packager.
func (b *Builder) WithPackager(p lambda.Packager) *Builder {
	b.packager = p
	return b
}

// WithLauncher sets the files bundled into every lambda next to the page.
// Defaults to the embedded launcher.
func (b *Builder) WithLauncher(fs files.Files) *Builder {
	b.launcher = fs
	return b
}

// WithNpmAuthToken sets the registry token written to .npmrc for the
// duration of the install and build steps. Empty means no .npmrc.
func (b *Builder) WithNpmAuthToken(token string) *Builder {
	b.npmAuthToken = token
	return b
}

func (b *Builder) WithRegistry(registry string) *Builder {
	if registry != "" {
		b.registry = registry
	}
	return b
}

func (b *Builder) WithBuildScript(script string) *Builder {
	if script != "" {
		b.buildScript = script
	}
	return b
}

func (b *Builder) WithWorkers(n int) *Builder {
	if n > 0 {
		b.workers = n
	}
	return b
}

func (b *Builder) WithLogger(log *logging.Logger) *Builder {
	b.log = log
	return b
}

func (b *Builder) WithProgress(bar *progress.Bar) *Builder {
	b.bar = bar
	return b
}

// Build runs one build of the project holding p.Entrypoint inside
// p.WorkPath, which must be an empty directory owned by this build.
func (b *Builder) Build(ctx context.Context, p Params) (Output, error) {
	if err := ValidateEntrypoint(p.Entrypoint); err != nil {
		return nil, err
	}
	entryDir := EntryDirectory(p.Entrypoint)

	rooted := files.ExcludeLockFiles(
		files.MoveEntryDirectoryToRoot(
			files.IncludeOnlyEntryDirectory(p.Files, entryDir), entryDir))
	input := files.ExcludeStaticDirectory(rooted)

	b.log.Infof("downloading %d user files", len(input))
	if _, err := files.Download(ctx, input, p.WorkPath, b.store); err != nil {
		return nil, &StepError{Step: StepDownload, Err: err}
	}

	if err := b.runUserScripts(ctx, p.WorkPath); err != nil {
		return nil, err
	}

	lambdas, err := b.createLambdas(ctx, p.WorkPath, entryDir)
	if err != nil {
		return nil, err
	}

	nextStatic, err := files.Glob("**", filepath.Join(p.WorkPath, ".next", "static"))
	if err != nil {
		return nil, &StepError{Step: StepDiscover, Err: err}
	}

	out := Output{}
	if err := merge(out, lambdas); err != nil {
		return nil, err
	}
	if err := merge(out, files.Prefix(nextStatic, path.Join(entryDir, "_next/static"))); err != nil {
		return nil, err
	}
	if err := merge(out, files.Prefix(files.OnlyStaticDirectory(rooted), entryDir)); err != nil {
		return nil, err
	}

	return out, nil
}

// runUserScripts installs dependencies and runs the build script, with the
// registry credentials in place for exactly that long.
func (b *Builder) runUserScripts(ctx context.Context, dir string) (err error) {
	runner := b.runner
	if runner == nil {
		runner = &npm.Runner{Logger: b.log}
	}

	if b.npmAuthToken != "" {
		b.log.Infof("found npm auth token, creating %s", npmrcFile)
		npmrc := filepath.Join(dir, npmrcFile)
		if err := os.WriteFile(npmrc, []byte(b.registry+":_authToken="+b.npmAuthToken), 0o600); err != nil {
			return &StepError{Step: StepNpmrc, Err: err}
		}
		defer func() {
			rmErr := os.Remove(npmrc)
			if rmErr == nil || errors.Is(rmErr, os.ErrNotExist) {
				return
			}
			if err != nil {
				b.log.Warnf("failed to remove %s: %v", npmrcFile, rmErr)
				return
			}
			err = &StepError{Step: StepNpmrc, Err: rmErr}
		}()
	}

	b.log.Infof("running npm install")
	if err := runner.Install(ctx, dir); err != nil {
		return &StepError{Step: StepInstall, Err: err}
	}

	b.log.Infof("running user script %q", b.buildScript)
	if err := runner.RunScript(ctx, dir, b.buildScript); err != nil {
		return &StepError{Step: StepScript, Err: err}
	}

	return nil
}

type page struct {
	name  string
	route string
	file  files.File
}

func (b *Builder) createLambdas(ctx context.Context, dir, entryDir string) (map[string]*lambda.Lambda, error) {
	pages, err := files.Glob("**.js", filepath.Join(dir, ".next", "serverless", "pages"))
	if err != nil {
		return nil, &StepError{Step: StepDiscover, Err: err}
	}
	if len(pages) == 0 {
		return nil, ErrNoPagesBuilt
	}

	var todo []page
	for _, name := range pages.Paths() {
		if slices.Contains(ScaffoldPages, name) {
			continue
		}
		todo = append(todo, page{
			name:  name,
			route: path.Join(entryDir, strings.TrimSuffix(name, ".js")),
			file:  pages[name],
		})
	}

	launcherFiles := b.launcher
	if launcherFiles == nil {
		if launcherFiles, err = launcher.Files(""); err != nil {
			return nil, err
		}
	}

	packager := b.packager
	if packager == nil {
		packager = &lambda.ZipPackager{Store: b.store}
	}

	b.bar.SetTotal(len(todo))
	defer b.bar.Finish()

	created, err := pool.Map(ctx, b.workers, todo, func(ctx context.Context, pg page) (*lambda.Lambda, error) {
		lfs := maps.Clone(launcherFiles)
		lfs[PageFile] = pg.file

		b.log.Debugf("creating lambda for page %q", pg.name)
		l, err := packager.Create(ctx, lambda.Options{Files: lfs, Handler: Handler, Runtime: Runtime})
		if err != nil {
			return nil, &PackagingError{Page: pg.name, Err: err}
		}
		b.log.Debugf("created lambda for page %q", pg.name)

		metrics.LambdaPackaged(len(l.ZipBuffer))
		b.bar.Add(1)
		return l, nil
	})
	if err != nil {
		return nil, err
	}

	result := make(map[string]*lambda.Lambda, len(todo))
	for i, pg := range todo {
		result[pg.route] = created[i]
	}
	return result, nil
}
