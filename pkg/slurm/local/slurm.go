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

package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
	"github.com/sylabs/slurm-launcher/pkg/tail"
)

const (
	sbatchBinaryName   = "sbatch"
	scancelBinaryName  = "scancel"
	sacctBinaryName    = "sacct"
	scontrolBinaryName = "scontrol"
)

// Client implements Slurm interface for communicating with
// a local Slurm cluster by calling Slurm binaries directly.
type Client struct{}

// NewClient returns new local client.
func NewClient() (*Client, error) {
	var missing []string
	for _, bin := range []string{sacctBinaryName, sbatchBinaryName, scancelBinaryName, scontrolBinaryName} {
		_, err := exec.LookPath(bin)
		if err != nil {
			missing = append(missing, bin)
		}
	}
	if len(missing) != 0 {
		return nil, errors.Errorf("no slurm binaries found: %s", strings.Join(missing, ", "))
	}
	return &Client{}, nil
}

// SBatch submits batch job and returns job id if succeeded.
func (*Client) SBatch(ctx context.Context, script string) (int64, error) {
	cmd := exec.CommandContext(ctx, sbatchBinaryName, "--parsable")
	cmd.Stdin = bytes.NewBufferString(script)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to execute sbatch: %s", strings.TrimSpace(string(out)))
	}

	return slurm.ParseJobID(string(out))
}

// SCancel cancels batch job.
func (*Client) SCancel(ctx context.Context, jobID int64) error {
	cmd := exec.CommandContext(ctx, scancelBinaryName, strconv.FormatInt(jobID, 10))

	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "failed to execute scancel: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

// SAcct returns information about a submitted batch job.
func (*Client) SAcct(ctx context.Context, jobID int64) ([]*slurm.JobInfo, error) {
	cmd := exec.CommandContext(ctx, sacctBinaryName,
		"-p",
		"-n",
		"-j",
		strconv.FormatInt(jobID, 10),
		"-o",
		slurm.SacctFormat,
	)

	out, err := cmd.Output()
	if err != nil {
		ee, ok := err.(*exec.ExitError)
		if ok {
			return nil, errors.Wrapf(err, "failed to execute sacct: %s", ee.Stderr)
		}
		return nil, errors.Wrap(err, "failed to execute sacct")
	}

	jInfo, err := slurm.ParseSacctResponse(string(out))
	if err != nil {
		return nil, errors.Wrap(err, slurm.ErrInvalidSacctResponse.Error())
	}

	return jInfo, nil
}

// Partition returns resource limits of a partition from scontrol.
func (*Client) Partition(ctx context.Context, name string) (*slurm.Resources, error) {
	if err := slurm.CheckPartitionName(name); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, scontrolBinaryName, "show", "partition", name)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute scontrol: %s", strings.TrimSpace(string(out)))
	}

	return slurm.ParseResources(string(out))
}

// Open opens arbitrary file at path in a read-only mode.
func (*Client) Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, slurm.ErrFileNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	return file, nil
}

// Tail follows a file at path until Close is called.
func (*Client) Tail(path string) (io.ReadCloser, error) {
	tr, err := tail.NewReader(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not create tail reader")
	}

	log.WithField("path", path).Debug("Tailing file")
	return tr, nil
}
