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

// Package launcher submits jobs to a workload manager and runs them
// on the allocated node.
package launcher

import (
	"context"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sylabs/slurm-launcher/pkg/job"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

//go:generate mockgen -package launcher -destination mock_launcher_test.go github.com/sylabs/slurm-launcher/pkg/launcher SchedulerAdapter,Shell
//go:generate mockgen -package launcher -destination mock_slurm_test.go github.com/sylabs/slurm-launcher/pkg/slurm Slurm

// DefaultEntrypoint is a command the allocated node calls to run a submitted job.
var DefaultEntrypoint = []string{"slurm-launcher"}

// ErrNoTransport is returned by operations that query a cluster
// when launcher was created without a Slurm transport.
var ErrNoTransport = errors.New("slurm transport is not configured")

// Config configures Launcher. Every field is optional, though Submit requires
// Scheduler, Run requires Shell and job queries require Slurm.
type Config struct {
	Scheduler SchedulerAdapter
	Shell     Shell
	Slurm     slurm.Slurm

	// Entrypoint is a command line of this program on the allocated node.
	Entrypoint []string
	// Partition is used when a spec requests none.
	Partition string
	// Environ returns environment the first step starts from, os.Environ by default.
	Environ func() []string
	Logger  log.FieldLogger
}

// Launcher submits jobs and runs them on allocated nodes. Launcher
// holds no state across operations and is safe for concurrent use.
type Launcher struct {
	scheduler  SchedulerAdapter
	shell      Shell
	slurm      slurm.Slurm
	entrypoint []string
	partition  string
	environ    func() []string
	logger     log.FieldLogger
}

// New creates launcher.
func New(c Config) *Launcher {
	l := &Launcher{
		scheduler:  c.Scheduler,
		shell:      c.Shell,
		slurm:      c.Slurm,
		entrypoint: c.Entrypoint,
		partition:  c.Partition,
		environ:    c.Environ,
		logger:     c.Logger,
	}
	if len(l.entrypoint) == 0 {
		l.entrypoint = DefaultEntrypoint
	}
	if l.environ == nil {
		l.environ = os.Environ
	}
	if l.logger == nil {
		l.logger = log.StandardLogger()
	}
	if l.scheduler == nil && l.slurm != nil {
		l.scheduler = NewSlurmScheduler(l.slurm)
	}
	return l
}

// Submit validates spec and enqueues it. Invalid spec is reported with
// *job.InvalidSpecError before the scheduler is contacted, any scheduler
// failure is reported with *SchedulerRejectedError.
func (l *Launcher) Submit(ctx context.Context, spec *job.Spec) (JobID, error) {
	if l.scheduler == nil {
		return "", errors.New("scheduler is not configured")
	}

	tr := job.NewTracker()
	if err := spec.Validate(); err != nil {
		return "", err
	}
	mustMove(tr, job.Validated)

	directives, err := l.Directives(spec)
	if err != nil {
		return "", errors.Wrap(err, "could not build directives")
	}

	logger := l.logger.WithField("job_name", directives["job-name"])
	id, err := l.scheduler.Enqueue(ctx, directives)
	if err != nil {
		mustMove(tr, job.Rejected)
		rejected, ok := errors.Cause(err).(*SchedulerRejectedError)
		if !ok {
			rejected = &SchedulerRejectedError{Reason: err.Error()}
		}
		logger.WithField("state", tr.State()).Warnf("Submission failed: %s", rejected.Reason)
		return "", rejected
	}

	mustMove(tr, job.Submitted)
	logger.WithFields(log.Fields{"job_id": id, "state": tr.State()}).Info("Job submitted")
	return id, nil
}

// Run applies environment steps of spec in order and then executes its
// command with the resulting environment. The command exit code is
// returned as is, a failed step is reported with *EnvironmentSetupError
// and stops the run before the command.
func (l *Launcher) Run(ctx context.Context, spec *job.Spec) (int, error) {
	if l.shell == nil {
		return 0, errors.New("shell is not configured")
	}

	tr := job.NewTracker()
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	mustMove(tr, job.Validated)
	mustMove(tr, job.Running)

	logger := l.logger.WithField("job_id", os.Getenv("SLURM_JOB_ID"))
	env := l.environ()
	for i, step := range spec.Environment {
		stepLogger := logger.WithFields(log.Fields{"index": i + 1, "step": step.String()})

		next, err := l.shell.Apply(ctx, step, env)
		if err != nil {
			mustMove(tr, job.EnvironmentFailed)
			stepLogger.WithField("state", tr.State()).Errorf("Environment step failed: %v", err)
			return 0, &EnvironmentSetupError{Index: i + 1, Step: step, Message: err.Error()}
		}
		stepLogger.Debug("Environment step applied")
		env = next
	}

	code, err := l.shell.Exec(ctx, spec.Command, env)
	if err != nil {
		return code, errors.Wrap(err, "could not execute command")
	}

	if err := tr.Complete(code); err != nil {
		return code, err
	}
	logger.WithFields(log.Fields{"exit_code": code, "state": tr.State()}).Info("Command finished")
	return code, nil
}

// mustMove panics on transitions that are not reachable by construction.
func mustMove(tr *job.Tracker, next job.State) {
	if err := tr.To(next); err != nil {
		panic(err)
	}
}
