// Package service runs a single build: it drives the builder, writes the
// artifacts to the output directory and optionally publishes them.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sebas5384/now-builders/internal/builder"
	"github.com/sebas5384/now-builders/internal/files"
	"github.com/sebas5384/now-builders/internal/logging"
	"github.com/sebas5384/now-builders/internal/metrics"
	"github.com/sebas5384/now-builders/internal/output"
)

type BuildState int

const (
	BuildStateUnknown BuildState = iota
	BuildStateSuccess
	BuildStateInvalidEntrypoint
	BuildStateStepFailed
	BuildStateNoPagesBuilt
	BuildStatePackagingFailed
	BuildStateWriteFailed
	BuildStatePushFailed
	BuildStateInternalError
)

func (s BuildState) String() string {
	switch s {
	case BuildStateSuccess:
		return "SUCCESS"
	case BuildStateInvalidEntrypoint:
		return "INVALID_ENTRYPOINT"
	case BuildStateStepFailed:
		return "STEP_FAILED"
	case BuildStateNoPagesBuilt:
		return "NO_PAGES_BUILT"
	case BuildStatePackagingFailed:
		return "PACKAGING_FAILED"
	case BuildStateWriteFailed:
		return "WRITE_FAILED"
	case BuildStatePushFailed:
		return "PUSH_FAILED"
	case BuildStateInternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Status is the outcome of a build. Message holds the error text on failure.
type Status struct {
	State   BuildState
	Message string
}

// BuildWorker is responsible for running one build of a Next.js project. It
// builds the lambdas and static files with the builder package, writes them
// to the output directory and, when a publisher is set, uploads them to an
// S3-compatible object storage service.
type BuildWorker struct {
	builder       *builder.Builder
	params        builder.Params
	outputDir     string
	store         files.Store
	publisher     output.Uploader
	publishPrefix string
	workers       int
	log           *logging.Logger
	status        Status
	output        builder.Output
	manifest      *output.Manifest
}

func NewBuildWorker(b *builder.Builder, params builder.Params, outputDir string, logger *logging.Logger) *BuildWorker {
	return &BuildWorker{
		builder:   b,
		params:    params,
		outputDir: outputDir,
		log:       logger,
	}
}

// WithStore sets the store used to copy content-addressable static files
// into the output directory. It should match the builder's store.
func (w *BuildWorker) WithStore(store files.Store) *BuildWorker {
	w.store = store
	return w
}

func (w *BuildWorker) WithPublisher(u output.Uploader, prefix string) *BuildWorker {
	w.publisher = u
	w.publishPrefix = prefix
	return w
}

func (w *BuildWorker) WithWorkers(n int) *BuildWorker {
	w.workers = n
	return w
}

// Status returns the outcome of the last Execute.
func (w *BuildWorker) Status() Status {
	return w.status
}

// Output returns the artifacts of the last successful build.
func (w *BuildWorker) Output() builder.Output {
	return w.output
}

// Manifest returns the manifest written by the last successful build.
func (w *BuildWorker) Manifest() *output.Manifest {
	return w.manifest
}

// Execute runs the build: builder, output write and then publish.
func (w *BuildWorker) Execute(ctx context.Context) Status {
	startTime := time.Now() // Used for timing metric

	out, err := w.builder.Build(ctx, w.params)
	if err != nil {
		w.log.Warnf("failed to build entrypoint %q: %v", w.params.Entrypoint, err)
		return w.report(classify(err), startTime, err)
	}

	m, err := output.Write(ctx, out, w.outputDir, w.store)
	if err != nil {
		w.log.Warnf("failed to write output of entrypoint %q: %v", w.params.Entrypoint, err)
		return w.report(BuildStateWriteFailed, startTime, err)
	}
	w.output = out
	w.manifest = m

	if w.publisher != nil {
		if err := output.Publish(ctx, w.outputDir, m, w.publisher, w.publishPrefix, w.workers); err != nil {
			w.log.Warnf("failed to publish output of entrypoint %q: %v", w.params.Entrypoint, err)
			return w.report(BuildStatePushFailed, startTime, err)
		}
		w.log.Debugf("Entrypoint %q built and published.", w.params.Entrypoint)
		return w.report(BuildStateSuccess, startTime, nil)
	}

	w.log.Debugf("Entrypoint %q built.", w.params.Entrypoint)
	return w.report(BuildStateSuccess, startTime, nil)
}

func (w *BuildWorker) report(state BuildState, startTime time.Time, err error) Status {
	w.status = Status{State: state}
	if err != nil {
		w.status.Message = err.Error()
	}

	if state == BuildStateSuccess {
		metrics.BuildSucceeded(w.params.Entrypoint, startTime)
	} else {
		metrics.BuildFailure(w.params.Entrypoint, state.String())
	}

	return w.status
}

func classify(err error) BuildState {
	var (
		invalid   *builder.InvalidEntrypointError
		step      *builder.StepError
		packaging *builder.PackagingError
	)
	switch {
	case errors.As(err, &invalid):
		return BuildStateInvalidEntrypoint
	case errors.Is(err, builder.ErrNoPagesBuilt):
		return BuildStateNoPagesBuilt
	case errors.As(err, &packaging):
		return BuildStatePackagingFailed
	case errors.As(err, &step):
		return BuildStateStepFailed
	default:
		return BuildStateInternalError
	}
}
