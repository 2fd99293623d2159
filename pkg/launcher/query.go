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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

// Polling intervals of Wait.
var (
	WaitInitialInterval = time.Second
	WaitMaxInterval     = 30 * time.Second
)

// Status returns accounting records of a job. The first record describes
// the whole job, the rest describe its steps.
func (l *Launcher) Status(ctx context.Context, id JobID) ([]*slurm.JobInfo, error) {
	if l.slurm == nil {
		return nil, ErrNoTransport
	}
	n, err := id.Int64()
	if err != nil {
		return nil, err
	}

	infos, err := l.slurm.SAcct(ctx, n)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get status of job %s", id)
	}
	return infos, nil
}

// Wait blocks until job reaches a terminal state and returns its final record.
// Job that is not yet known to accounting is treated as pending.
func (l *Launcher) Wait(ctx context.Context, id JobID) (*slurm.JobInfo, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = WaitInitialInterval
	b.MaxInterval = WaitMaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	logger := l.logger.WithField("job_id", id)
	last := ""
	for {
		infos, err := l.Status(ctx, id)
		if err != nil {
			return nil, err
		}

		if len(infos) != 0 {
			info := infos[0]
			if info.State != last {
				logger.WithField("state", info.State).Info("Job state changed")
				last = info.State
			}
			if slurm.IsTerminal(info.State) {
				return info, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.NextBackOff()):
		}
	}
}

// Cancel cancels a job.
func (l *Launcher) Cancel(ctx context.Context, id JobID) error {
	if l.slurm == nil {
		return ErrNoTransport
	}
	n, err := id.Int64()
	if err != nil {
		return err
	}

	if err := l.slurm.SCancel(ctx, n); err != nil {
		return errors.Wrapf(err, "could not cancel job %s", id)
	}
	l.logger.WithField("job_id", id).Info("Job cancelled")
	return nil
}

// Limits returns resource limits of a partition.
func (l *Launcher) Limits(ctx context.Context, partition string) (*slurm.Resources, error) {
	if l.slurm == nil {
		return nil, ErrNoTransport
	}
	if partition == "" {
		partition = l.partition
	}
	if partition == "" {
		return nil, errors.New("partition is not set")
	}
	return l.slurm.Partition(ctx, partition)
}

// OutputPath returns path of job output, slurm-<id>.out unless path is set.
// Job id placeholder %j in path is replaced the way sbatch does.
func OutputPath(id JobID, path string) string {
	if path == "" {
		return fmt.Sprintf("slurm-%s.out", id)
	}
	return strings.Replace(path, "%j", string(id), -1)
}

// Output opens job output file. With follow set, reading continues
// as the file grows until the returned reader is closed. Only transports
// implementing slurm.Tailer can follow.
func (l *Launcher) Output(id JobID, path string, follow bool) (io.ReadCloser, error) {
	if l.slurm == nil {
		return nil, ErrNoTransport
	}
	path = OutputPath(id, path)

	if !follow {
		return l.slurm.Open(path)
	}
	t, ok := l.slurm.(slurm.Tailer)
	if !ok {
		return nil, errors.New("transport can't follow output")
	}
	return t.Tail(path)
}

// Collect copies job output into dir/<base name of the output file>
// and returns the path of the copy.
func (l *Launcher) Collect(id JobID, from, dir string) (string, error) {
	src, err := l.Output(id, from, false)
	if err != nil {
		return "", errors.Wrapf(err, "could not open job output")
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "could not create results dir")
	}

	to := filepath.Join(dir, filepath.Base(OutputPath(id, from)))
	dst, err := os.Create(to)
	if err != nil {
		return "", errors.Wrap(err, "could not create results file")
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", errors.Wrap(err, "could not copy job output")
	}
	l.logger.WithFields(log.Fields{"job_id": id, "path": to}).Debug("Job output collected")
	return to, dst.Close()
}
