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
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"github.com/sylabs/slurm-launcher/pkg/job"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

const defaultJobNamePrefix = "launcher-"

// Directives translates spec into sbatch directives. The batch script body
// calls entrypoint back on the allocated node with the whole spec inlined,
// so the node side needs no access to the submitting host.
func (l *Launcher) Directives(spec *job.Spec) (slurm.Directives, error) {
	r := spec.Resources
	d := slurm.Directives{
		"nodes": strconv.Itoa(r.Nodes),
		"time":  slurm.FormatDuration(r.WallClock),
	}

	partition := r.Partition
	if partition == "" {
		partition = l.partition
	}
	setNonEmpty(d, "partition", partition)

	if r.GPUs > 0 {
		gres := "gpu"
		if r.GPUType != "" {
			gres += ":" + r.GPUType
		}
		d["gres"] = fmt.Sprintf("%s:%d", gres, r.GPUs)
	}
	if r.TasksPerNode > 0 {
		d["ntasks-per-node"] = strconv.Itoa(r.TasksPerNode)
	}
	if r.CPUsPerTask > 0 {
		d["cpus-per-task"] = strconv.Itoa(r.CPUsPerTask)
	}
	setNonEmpty(d, "mem", r.Memory)
	setNonEmpty(d, "account", r.Account)
	setNonEmpty(d, "qos", r.QOS)

	name := spec.Identity.Name
	if name == "" {
		name = defaultJobNamePrefix + uuid.New().String()[:8]
	}
	d["job-name"] = name
	setNonEmpty(d, "mail-user", spec.Identity.MailUser)
	if tt := spec.Identity.Triggers(); len(tt) != 0 {
		types := make([]string, len(tt))
		for i, t := range tt {
			types[i] = t.MailType()
		}
		d["mail-type"] = strings.Join(types, ",")
	}

	setNonEmpty(d, "output", spec.Output)
	setNonEmpty(d, "error", spec.Error)
	setNonEmpty(d, "chdir", spec.WorkDir)

	inline, err := spec.Inline()
	if err != nil {
		return nil, err
	}
	d[slurm.WrapDirective] = shellquote.Join(l.entrypoint...) + " run --inline " + inline
	return d, nil
}

func setNonEmpty(d slurm.Directives, key, value string) {
	if value != "" {
		d[key] = value
	}
}
