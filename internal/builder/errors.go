package builder

import (
	"errors"
	"fmt"
	"strings"
)

const (
	entrypointHelpURL   = "https://err.sh/zeit/now-builders/now-next-entrypoint"
	noPagesBuiltHelpURL = "https://err.sh/zeit/now-builders/now-next-no-serverless-pages-built"
)

// ErrNoPagesBuilt is returned when the build script produced no serverless
// pages.
var ErrNoPagesBuilt = errors.New("no serverless pages were built. " + noPagesBuiltHelpURL)

type InvalidEntrypointError struct {
	Path    string
	Allowed []string
}

func (err *InvalidEntrypointError) Error() string {
	return fmt.Sprintf("specified entrypoint %q has to be one of %s. %s",
		err.Path, strings.Join(err.Allowed, ", "), entrypointHelpURL)
}

// Build steps reported by StepError.
const (
	StepDownload = "download"
	StepNpmrc    = "npmrc"
	StepInstall  = "install"
	StepScript   = "script"
	StepDiscover = "discover"
)

// StepError reports a failed external step. The underlying error, including
// any process output it carries, is kept as is.
type StepError struct {
	Step string
	Err  error
}

func (err *StepError) Error() string {
	return fmt.Sprintf("%s: %v", err.Step, err.Err)
}

func (err *StepError) Unwrap() error { return err.Err }

// PackagingError reports the page whose lambda could not be created.
type PackagingError struct {
	Page string
	Err  error
}

func (err *PackagingError) Error() string {
	return fmt.Sprintf("failed to create lambda for page %q: %v", err.Page, err.Err)
}

func (err *PackagingError) Unwrap() error { return err.Err }

// OutputConflictError reports two artifacts claiming the same output path.
type OutputConflictError struct {
	Path string
}

func (err *OutputConflictError) Error() string {
	return fmt.Sprintf("conflicting output path %q", err.Path)
}
