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

package slurm

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// JobStatusPending is a status of a job waiting for an allocation.
	JobStatusPending = "PENDING"
	// JobStatusRunning is a status of a job holding an allocation.
	JobStatusRunning = "RUNNING"
	// JobStatusCompleted is a status of a job whose batch script exited with zero.
	JobStatusCompleted = "COMPLETED"
	// JobStatusFailed is a status of a job whose batch script exited with non zero.
	JobStatusFailed = "FAILED"
	// JobStatusCancelled is a status of a job cancelled by a user or administrator.
	// Sacct may append the canceller uid, e.g. "CANCELLED by 1000".
	JobStatusCancelled = "CANCELLED"
	// JobStatusTimeout is a status of a job that reached its time limit.
	JobStatusTimeout = "TIMEOUT"
	// JobStatusOutOfMemory is a status of a job killed by the OOM handler.
	JobStatusOutOfMemory = "OUT_OF_MEMORY"
	// JobStatusNodeFail is a status of a job terminated by a node failure.
	JobStatusNodeFail = "NODE_FAIL"
)

var (
	// ErrInvalidSacctResponse is returned when trying to parse sacct
	// response that is invalid.
	ErrInvalidSacctResponse = errors.New("unable to parse sacct response")
	// ErrFileNotFound is returned when Open fails to find a file.
	ErrFileNotFound = errors.New("file is not found")
	// ErrDurationIsUnlimited is returned when parsing UNLIMITED duration.
	ErrDurationIsUnlimited = errors.New("duration is unlimited")
)

// Slurm is a transport to a Slurm cluster. Implementations differ
// in the way they reach the submission host.
type Slurm interface {
	// SBatch submits a batch script and returns the assigned job id.
	SBatch(ctx context.Context, script string) (int64, error)
	// SCancel cancels a job.
	SCancel(ctx context.Context, jobID int64) error
	// SAcct returns accounting records of a job, one per job step.
	SAcct(ctx context.Context, jobID int64) ([]*JobInfo, error)
	// Partition returns resource limits of a partition.
	Partition(ctx context.Context, name string) (*Resources, error)
	// Open opens a file on the submission host in a read-only mode.
	Open(path string) (io.ReadCloser, error)
}

// Tailer is implemented by transports that can follow a growing file.
type Tailer interface {
	Tail(path string) (io.ReadCloser, error)
}

// JobInfo contains accounting information about a job or one of its steps.
type JobInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ExitCode   int        `json:"exit_code"`
	Signal     int        `json:"signal"`
	State      string     `json:"state"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// Resources are partition limits reported by scontrol.
// Negative values mean the limit is not set.
type Resources struct {
	Nodes      int64         `json:"nodes"`
	CPUPerNode int64         `json:"cpu_per_node"`
	MemPerNode int64         `json:"mem_per_node"`
	WallTime   time.Duration `json:"wall_time"`
}

// IsTerminal reports whether a job in the passed state will not change it anymore.
func IsTerminal(state string) bool {
	switch BaseState(state) {
	case JobStatusCompleted,
		JobStatusFailed,
		JobStatusCancelled,
		JobStatusTimeout,
		JobStatusOutOfMemory,
		JobStatusNodeFail:
		return true
	}
	return false
}

// BaseState strips sacct annotations from a state, e.g. "CANCELLED by 1000"
// becomes "CANCELLED".
func BaseState(state string) string {
	if i := strings.IndexByte(state, ' '); i != -1 {
		return state[:i]
	}
	return state
}
