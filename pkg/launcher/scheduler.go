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
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

// JobID is an identifier a workload manager assigned to a submitted job.
type JobID string

// Int64 returns numeric form of a Slurm job id.
func (id JobID) Int64() (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid job id %q", string(id))
	}
	return n, nil
}

// SchedulerAdapter hands directives over to a workload manager.
type SchedulerAdapter interface {
	// Enqueue submits a job described by directives. Any returned
	// error means the job was not accepted.
	Enqueue(ctx context.Context, directives slurm.Directives) (JobID, error)
}

// SlurmScheduler implements SchedulerAdapter by rendering directives
// into a batch script and submitting it over a Slurm transport.
type SlurmScheduler struct {
	client slurm.Slurm
}

// NewSlurmScheduler returns scheduler adapter submitting jobs with c.
func NewSlurmScheduler(c slurm.Slurm) *SlurmScheduler {
	return &SlurmScheduler{client: c}
}

// Enqueue implements SchedulerAdapter.
func (s *SlurmScheduler) Enqueue(ctx context.Context, directives slurm.Directives) (JobID, error) {
	script, err := directives.Script()
	if err != nil {
		return "", errors.Wrap(err, "could not render batch script")
	}

	log.Debugf("Submitting batch script:\n%s", script)
	id, err := s.client.SBatch(ctx, script)
	if err != nil {
		return "", err
	}
	return JobID(strconv.FormatInt(id, 10)), nil
}
