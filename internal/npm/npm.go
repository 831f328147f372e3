// Package npm installs dependencies and runs package.json scripts with the
// npm command line client.
package npm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sebas5384/now-builders/internal/logging"
)

const DefaultCommand = "npm"

// Runner shells out to npm. The zero value uses "npm" from PATH with the
// current process environment.
type Runner struct {
	Npm    string
	Env    []string // appended to the process environment
	Logger *logging.Logger
}

// CommandError carries the combined output of a failed npm invocation.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

func (r *Runner) Install(ctx context.Context, dir string) error {
	r.Logger.Infof("installing dependencies in %s", dir)
	return r.run(ctx, dir, "install")
}

// RunScript runs the named package.json script. A package without the script
// is left untouched.
func (r *Runner) RunScript(ctx context.Context, dir, script string) error {
	bs, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if errors.Is(err, fs.ErrNotExist) {
		r.Logger.Infof("no package.json in %s, skipping script %q", dir, script)
		return nil
	}
	if err != nil {
		return err
	}

	if !gjson.ValidBytes(bs) {
		return fmt.Errorf("invalid package.json in %s", dir)
	}
	if _, ok := gjson.GetBytes(bs, "scripts").Map()[script]; !ok {
		r.Logger.Infof("package.json has no %q script, skipping", script)
		return nil
	}

	r.Logger.Infof("running script %q in %s", script, dir)
	return r.run(ctx, dir, "run", script)
}

func (r *Runner) run(ctx context.Context, dir string, args ...string) error {
	npm := r.Npm
	if npm == "" {
		npm = DefaultCommand
	}

	out := bytes.Buffer{}
	cmd := exec.CommandContext(ctx, npm, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if out.Len() > 0 {
		r.Logger.Debugf("%s %s: %s", npm, strings.Join(args, " "), out.String())
	}
	if err != nil {
		return &CommandError{Args: append([]string{npm}, args...), Output: out.String(), Err: err}
	}
	return nil
}
