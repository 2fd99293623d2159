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

package job

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func validSpec() *Spec {
	return &Spec{
		Resources: Resources{Nodes: 1, WallClock: 24 * time.Hour},
		Command:   Command{Executable: "hostname"},
	}
}

func TestSpec_Validate(t *testing.T) {
	tt := []struct {
		name        string
		modify      func(s *Spec)
		expectField string
	}{
		{name: "minimal", modify: func(*Spec) {}},
		{
			name: "full",
			modify: func(s *Spec) {
				s.Resources.GPUType = "v100"
				s.Resources.GPUs = 4
				s.Resources.TasksPerNode = 1
				s.Identity = Identity{Name: "gasp", MailUser: "me@example.com", MailType: []Trigger{"end", TriggerFail}}
				s.Environment = []Step{ParseStep("load cuda/10.2"), ParseStep("activate env:pytorch_env")}
			},
		},
		{name: "zero nodes", modify: func(s *Spec) { s.Resources.Nodes = 0 }, expectField: "resources.nodes"},
		{name: "no wall clock", modify: func(s *Spec) { s.Resources.WallClock = 0 }, expectField: "resources.wall_clock"},
		{name: "negative gpus", modify: func(s *Spec) { s.Resources.GPUs = -1 }, expectField: "resources.gpus"},
		{name: "gpu type without gpus", modify: func(s *Spec) { s.Resources.GPUType = "v100" }, expectField: "resources.gpu_type"},
		{name: "negative tasks", modify: func(s *Spec) { s.Resources.TasksPerNode = -2 }, expectField: "resources.tasks_per_node"},
		{name: "negative cpus", modify: func(s *Spec) { s.Resources.CPUsPerTask = -2 }, expectField: "resources.cpus_per_task"},
		{name: "multiline name", modify: func(s *Spec) { s.Identity.Name = "a\nb" }, expectField: "identity.name"},
		{name: "mail user with space", modify: func(s *Spec) { s.Identity.MailUser = "me @x" }, expectField: "identity.mail_user"},
		{name: "unknown trigger", modify: func(s *Spec) { s.Identity.MailType = []Trigger{"REQUEUE"} }, expectField: "identity.mail_type"},
		{name: "profile left", modify: func(s *Spec) { s.Profile = "gpu" }, expectField: "profile"},
		{
			name: "bad second step",
			modify: func(s *Spec) {
				s.Environment = []Step{ParseStep("load cuda"), {Kind: StepExport, Value: "1=2"}}
			},
			expectField: "environment[2]",
		},
		{name: "no executable", modify: func(s *Spec) { s.Command.Executable = " " }, expectField: "command.executable"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			s := validSpec()
			tc.modify(s)

			err := s.Validate()
			if tc.expectField == "" {
				require.NoError(t, err)
				return
			}
			require.IsType(t, &InvalidSpecError{}, err)
			require.Equal(t, tc.expectField, err.(*InvalidSpecError).Field)
		})
	}
}

func TestSpec_Validate_resources(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("nodes below one are rejected", prop.ForAll(
		func(nodes int, wall int64) bool {
			s := validSpec()
			s.Resources.Nodes = nodes
			s.Resources.WallClock = time.Duration(wall)
			err, ok := s.Validate().(*InvalidSpecError)
			return ok && err.Field == "resources.nodes"
		},
		gen.IntRange(-1000, 0),
		gen.Int64(),
	))

	properties.Property("non positive wall clock is rejected", prop.ForAll(
		func(nodes int, wall int64) bool {
			s := validSpec()
			s.Resources.Nodes = nodes
			s.Resources.WallClock = time.Duration(wall)
			err, ok := s.Validate().(*InvalidSpecError)
			return ok && err.Field == "resources.wall_clock"
		},
		gen.IntRange(1, 1000),
		gen.Int64Range(-int64(365*24*time.Hour), 0),
	))

	properties.Property("positive resources are accepted", prop.ForAll(
		func(nodes int, wall int64) bool {
			s := validSpec()
			s.Resources.Nodes = nodes
			s.Resources.WallClock = time.Duration(wall)
			return s.Validate() == nil
		},
		gen.IntRange(1, 1000),
		gen.Int64Range(1, int64(365*24*time.Hour)),
	))

	properties.TestingRun(t)
}

func TestIdentity_Triggers(t *testing.T) {
	tt := []struct {
		name   string
		in     []Trigger
		expect []Trigger
	}{
		{name: "none"},
		{name: "ordered", in: []Trigger{"fail", TriggerStart, TriggerFail}, expect: []Trigger{TriggerStart, TriggerFail}},
		{name: "all", in: []Trigger{TriggerEnd, "all"}, expect: []Trigger{TriggerAll}},
		{name: "slurm begin", in: []Trigger{"begin", TriggerEnd}, expect: []Trigger{TriggerStart, TriggerEnd}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, Identity{MailType: tc.in}.Triggers())
		})
	}
}
