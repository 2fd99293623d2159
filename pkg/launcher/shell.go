// Copyright (c) 2019 Sylabs, Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package launcher

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sylabs/slurm-launcher/pkg/job"
)

const defaultShell = "/bin/sh"

// Exit codes a POSIX shell reports for commands it could not run.
const (
	exitNotExecutable = 126
	exitNotFound      = 127
	exitSignalBase    = 128
)

// Variables a shell maintains on its own, they are not part of the
// environment steps produce.
var shellOwnedVars = map[string]bool{
	"_":     true,
	"SHLVL": true,
}

// Shell runs environment steps and the job command on the allocated node.
type Shell interface {
	// Apply runs step in env and returns the environment it produced.
	Apply(ctx context.Context, step job.Step, env []string) ([]string, error)
	// Exec runs cmd in env and returns its exit code. An error is returned
	// only when the command could not be started.
	Exec(ctx context.Context, cmd job.Command, env []string) (int, error)
}

// SystemShell implements Shell with a POSIX shell. Each step runs in its own
// shell process, the environment it leaves behind is captured through an
// additional file descriptor and passed to the next step.
type SystemShell struct {
	// Path is a shell binary, /bin/sh when empty.
	Path   string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewSystemShell returns shell attached to the process stdio.
func NewSystemShell() *SystemShell {
	return &SystemShell{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Apply implements Shell.
func (s *SystemShell) Apply(ctx context.Context, step job.Step, env []string) ([]string, error) {
	envFile, err := ioutil.TempFile("", "launcher-env-")
	if err != nil {
		return nil, errors.Wrap(err, "could not create environment capture file")
	}
	defer os.Remove(envFile.Name())
	defer envFile.Close()

	// fd 3 in the child
	script := "set -e\n" + step.Script() + "\nenv -0 >&3\n"

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.shell(), "-c", script)
	cmd.Env = env
	cmd.Stdout = s.Stdout
	cmd.Stderr = io.MultiWriter(&stderr, writerOrDiscard(s.Stderr))
	cmd.ExtraFiles = []*os.File{envFile}

	log.WithField("step", step.String()).Debug("Applying environment step")
	if err := cmd.Run(); err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return nil, errors.Errorf("%v: %s", err, msg)
		}
		return nil, err
	}

	if _, err := envFile.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "could not rewind environment capture file")
	}
	raw, err := ioutil.ReadAll(envFile)
	if err != nil {
		return nil, errors.Wrap(err, "could not read captured environment")
	}
	if len(raw) == 0 {
		return nil, errors.New("step exited before its environment was captured")
	}
	return parseEnv(raw), nil
}

// Exec implements Shell. The executable is looked up in PATH of env,
// not of the current process, so steps may put it there. Working directory
// follows PWD of env, so a cd step affects the command too.
func (s *SystemShell) Exec(ctx context.Context, c job.Command, env []string) (int, error) {
	path, err := lookPath(c.Executable, env)
	if err != nil {
		return exitNotFound, err
	}

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Env = env
	if wd := lookupEnv(env, "PWD"); wd != "" {
		if fi, err := os.Stat(wd); err == nil && fi.IsDir() {
			cmd.Dir = wd
		}
	}
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return exitNotExecutable, errors.Wrapf(err, "could not start %s", c.Executable)
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return exitNotExecutable, errors.Wrapf(err, "unexpected wait status of %s", c.Executable)
	}
	if ws.Signaled() {
		return exitSignalBase + int(ws.Signal()), nil
	}
	return ws.ExitStatus(), nil
}

func (s *SystemShell) shell() string {
	if s.Path != "" {
		return s.Path
	}
	return defaultShell
}

func parseEnv(raw []byte) []string {
	var env []string
	for _, kv := range strings.Split(string(raw), "\x00") {
		i := strings.IndexByte(kv, '=')
		if i < 1 || shellOwnedVars[kv[:i]] {
			continue
		}
		env = append(env, kv)
	}
	return env
}

func lookupEnv(env []string, key string) string {
	prefix := key + "="
	var v string
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			v = kv[len(prefix):]
		}
	}
	return v
}

func lookPath(file string, env []string) (string, error) {
	if strings.Contains(file, "/") {
		if err := checkExecutable(file); err != nil {
			return "", errors.Wrapf(err, "%s is not executable", file)
		}
		return file, nil
	}

	for _, dir := range filepath.SplitList(lookupEnv(env, "PATH")) {
		if dir == "" {
			dir = "."
		}
		path := filepath.Join(dir, file)
		if !strings.Contains(path, "/") {
			path = "./" + path
		}
		if checkExecutable(path) == nil {
			return path, nil
		}
	}
	return "", errors.Errorf("executable %s is not found in PATH", file)
}

func checkExecutable(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() || fi.Mode()&0111 == 0 {
		return errors.New("permission denied")
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i != -1 {
		return s[i+1:]
	}
	return s
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return ioutil.Discard
	}
	return w
}
