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

// Package job describes batch jobs: resources requested from a workload
// manager, the environment prepared on the allocated node and the
// command executed there.
package job

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

// Spec is a declarative description of a single job submission.
// Spec is treated as immutable once constructed.
type Spec struct {
	Resources   Resources `yaml:"resources"`
	Identity    Identity  `yaml:"identity,omitempty"`
	Profile     string    `yaml:"profile,omitempty"`
	Environment []Step    `yaml:"environment,omitempty"`
	Command     Command   `yaml:"command"`

	// Output and Error are paths batch output is written to on the cluster.
	Output  string `yaml:"output,omitempty"`
	Error   string `yaml:"error,omitempty"`
	WorkDir string `yaml:"workdir,omitempty"`
}

// Resources are requested from a workload manager. Nodes and WallClock are required.
type Resources struct {
	Nodes        int           `yaml:"nodes"`
	WallClock    time.Duration `yaml:"-"`
	Partition    string        `yaml:"partition,omitempty"`
	GPUType      string        `yaml:"gpu_type,omitempty"`
	GPUs         int           `yaml:"gpus,omitempty"`
	TasksPerNode int           `yaml:"tasks_per_node,omitempty"`
	CPUsPerTask  int           `yaml:"cpus_per_task,omitempty"`
	Memory       string        `yaml:"memory,omitempty"`
	Account      string        `yaml:"account,omitempty"`
	QOS          string        `yaml:"qos,omitempty"`
}

// Identity names a job and configures notifications about it.
type Identity struct {
	Name     string    `yaml:"name,omitempty"`
	MailUser string    `yaml:"mail_user,omitempty"`
	MailType []Trigger `yaml:"mail_type,omitempty"`
}

// Trigger is an event a notification is sent on.
type Trigger string

// Supported notification triggers.
const (
	TriggerStart Trigger = "START"
	TriggerEnd   Trigger = "END"
	TriggerFail  Trigger = "FAIL"
	TriggerAll   Trigger = "ALL"
)

// slurm calls the start of a job BEGIN
const mailTypeBegin = "BEGIN"

// MailType returns the sbatch --mail-type value of t.
func (t Trigger) MailType() string {
	if t == TriggerStart {
		return mailTypeBegin
	}
	return string(t)
}

// TriggerFromMailType is the inverse of MailType.
func TriggerFromMailType(mailType string) Trigger {
	t := Trigger(strings.ToUpper(strings.TrimSpace(mailType)))
	if t == mailTypeBegin {
		return TriggerStart
	}
	return t
}

// Command is an executable with its arguments.
type Command struct {
	Executable string   `yaml:"executable"`
	Args       []string `yaml:"args,omitempty"`
}

type resourcesYAML struct {
	Nodes        int    `yaml:"nodes"`
	WallClock    string `yaml:"wall_clock"`
	Partition    string `yaml:"partition,omitempty"`
	GPUType      string `yaml:"gpu_type,omitempty"`
	GPUs         int    `yaml:"gpus,omitempty"`
	TasksPerNode int    `yaml:"tasks_per_node,omitempty"`
	CPUsPerTask  int    `yaml:"cpus_per_task,omitempty"`
	Memory       string `yaml:"memory,omitempty"`
	Account      string `yaml:"account,omitempty"`
	QOS          string `yaml:"qos,omitempty"`
}

// UnmarshalYAML parses wall clock in slurm duration format, e.g. 24:00:00 or 2-00:00:00.
func (r *Resources) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw resourcesYAML
	if err := unmarshal(&raw); err != nil {
		return err
	}

	*r = Resources{
		Nodes:        raw.Nodes,
		Partition:    raw.Partition,
		GPUType:      raw.GPUType,
		GPUs:         raw.GPUs,
		TasksPerNode: raw.TasksPerNode,
		CPUsPerTask:  raw.CPUsPerTask,
		Memory:       raw.Memory,
		Account:      raw.Account,
		QOS:          raw.QOS,
	}

	// missing wall clock is reported by validation
	if raw.WallClock == "" {
		return nil
	}
	d, err := slurm.ParseDuration(raw.WallClock)
	if err != nil {
		return errors.Wrapf(err, "invalid wall_clock %q", raw.WallClock)
	}
	r.WallClock = *d
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Resources) MarshalYAML() (interface{}, error) {
	raw := resourcesYAML{
		Nodes:        r.Nodes,
		Partition:    r.Partition,
		GPUType:      r.GPUType,
		GPUs:         r.GPUs,
		TasksPerNode: r.TasksPerNode,
		CPUsPerTask:  r.CPUsPerTask,
		Memory:       r.Memory,
		Account:      r.Account,
		QOS:          r.QOS,
	}
	if r.WallClock > 0 {
		raw.WallClock = slurm.FormatDuration(r.WallClock)
	}
	return raw, nil
}

// Clone returns a deep copy of s.
func (s *Spec) Clone() *Spec {
	c := *s
	if s.Identity.MailType != nil {
		c.Identity.MailType = append([]Trigger(nil), s.Identity.MailType...)
	}
	if s.Environment != nil {
		c.Environment = append([]Step(nil), s.Environment...)
	}
	if s.Command.Args != nil {
		c.Command.Args = append([]string(nil), s.Command.Args...)
	}
	return &c
}

// Argv returns executable followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Executable}, c.Args...)
}
