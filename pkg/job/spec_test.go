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
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSpecYAML = `
resources:
  nodes: 1
  wall_clock: "24:00:00"
  partition: gpu
  gpu_type: v100
  gpus: 4
  tasks_per_node: 1
identity:
  name: gasp-cv
  mail_user: someone@example.com
  mail_type: [END, FAIL]
environment:
  - load cuda/10.2
  - activate env:pytorch_env
command:
  executable: python
  args: [train.py, "0.02", cv, "8"]
output: logs/%j.out
`

func TestDecode(t *testing.T) {
	s, err := Decode(strings.NewReader(testSpecYAML), nil)
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	require.Equal(t, &Spec{
		Resources: Resources{
			Nodes:        1,
			WallClock:    24 * time.Hour,
			Partition:    "gpu",
			GPUType:      "v100",
			GPUs:         4,
			TasksPerNode: 1,
		},
		Identity: Identity{
			Name:     "gasp-cv",
			MailUser: "someone@example.com",
			MailType: []Trigger{TriggerEnd, TriggerFail},
		},
		Environment: []Step{
			{Kind: StepModule, Value: "cuda/10.2"},
			{Kind: StepConda, Value: "pytorch_env"},
		},
		Command: Command{
			Executable: "python",
			Args:       []string{"train.py", "0.02", "cv", "8"},
		},
		Output: "logs/%j.out",
	}, s)
}

func TestDecode_errors(t *testing.T) {
	tt := []struct {
		name        string
		in          string
		expectError string
	}{
		{
			name:        "unknown field",
			in:          "resources: {nodes: 1, wall_clock: '10'}\ncommand: {executable: hostname}\ncolor: blue\n",
			expectError: "field color not found",
		},
		{
			name:        "unlimited wall clock",
			in:          "resources: {nodes: 1, wall_clock: UNLIMITED}\ncommand: {executable: hostname}\n",
			expectError: "invalid wall_clock \"UNLIMITED\"",
		},
		{
			name:        "broken wall clock",
			in:          "resources: {nodes: 1, wall_clock: 'ten'}\ncommand: {executable: hostname}\n",
			expectError: "invalid wall_clock \"ten\"",
		},
		{
			name:        "unknown profile",
			in:          "resources: {nodes: 1, wall_clock: '10'}\nprofile: tpu\ncommand: {executable: hostname}\n",
			expectError: "unknown profile \"tpu\"",
		},
		{
			name:        "step with two entries",
			in:          "resources: {nodes: 1, wall_clock: '10'}\nenvironment: [{module: a, conda: b}]\ncommand: {executable: hostname}\n",
			expectError: "step mapping must have exactly one entry",
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.in), nil)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.expectError)
		})
	}
}

func TestDecode_profile(t *testing.T) {
	profiles := Profiles{
		"cluster-gpu": {
			{Kind: StepModule, Value: "cuda/10.2"},
			{Kind: StepConda, Value: "pytorch_env"},
		},
	}
	in := `
resources: {nodes: 2, wall_clock: "2-00:00:00"}
profile: cluster-gpu
environment: [export OMP_NUM_THREADS=8]
command: {executable: python, args: [parse_files.py]}
`
	s, err := Decode(strings.NewReader(in), profiles)
	require.NoError(t, err)
	require.Empty(t, s.Profile)
	require.Equal(t, 48*time.Hour, s.Resources.WallClock)
	require.Equal(t, []Step{
		{Kind: StepModule, Value: "cuda/10.2"},
		{Kind: StepConda, Value: "pytorch_env"},
		{Kind: StepExport, Value: "OMP_NUM_THREADS=8"},
	}, s.Environment)

	// profile steps are not shared with the spec
	s.Environment[0].Value = "cuda/11.0"
	require.Equal(t, "cuda/10.2", profiles["cluster-gpu"][0].Value)
}

func TestSpec_WithProfile(t *testing.T) {
	profiles := Profiles{"cpu": {{Kind: StepModule, Value: "python/3.8"}}}
	s := &Spec{
		Resources:   Resources{Nodes: 1, WallClock: time.Hour},
		Environment: []Step{{Kind: StepSource, Value: "env.sh"}},
		Command:     Command{Executable: "python"},
	}

	c, err := s.WithProfile("cpu", profiles)
	require.NoError(t, err)
	require.Equal(t, []Step{{Kind: StepModule, Value: "python/3.8"}, {Kind: StepSource, Value: "env.sh"}}, c.Environment)
	require.Equal(t, []Step{{Kind: StepSource, Value: "env.sh"}}, s.Environment)

	_, err = s.WithProfile("gpu", profiles)
	require.Error(t, err)
}

func TestSpec_Inline(t *testing.T) {
	s, err := Decode(strings.NewReader(testSpecYAML), nil)
	require.NoError(t, err)
	s.Environment = append(s.Environment,
		Step{Kind: StepShell, Value: "ulimit -n 4096"},
		Step{Kind: StepShell, Value: "load looks like a module"},
		Step{Kind: StepExport, Value: "DATA_DIR=/scratch/gasp data"},
	)

	inline, err := s.Inline()
	require.NoError(t, err)
	require.Equal(t, -1, strings.IndexAny(inline, " \t\n'\"$+/="), "inline spec must be shell safe")

	decoded, err := DecodeInline(inline)
	require.NoError(t, err)
	require.Equal(t, s, decoded)
}

func TestSpec_Encode(t *testing.T) {
	s := &Spec{
		Resources: Resources{Nodes: 1, WallClock: 90 * time.Minute},
		Environment: []Step{
			{Kind: StepModule, Value: "cuda/10.2"},
		},
		Command: Command{Executable: "hostname"},
	}

	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))
	out := buf.String()
	require.Contains(t, out, "wall_clock:")
	require.Contains(t, out, "01:30:00")
	require.Contains(t, out, "- load cuda/10.2")
	require.NotContains(t, out, "identity")
	require.NotContains(t, out, "profile")

	decoded, err := Decode(&buf, nil)
	require.NoError(t, err)
	require.Equal(t, s, decoded)
}

func TestSpec_Clone(t *testing.T) {
	s, err := Decode(strings.NewReader(testSpecYAML), nil)
	require.NoError(t, err)

	c := s.Clone()
	require.Equal(t, s, c)

	c.Command.Args[0] = "eval.py"
	c.Environment[0].Value = "cuda/11.0"
	c.Identity.MailType[0] = TriggerAll
	require.Equal(t, "train.py", s.Command.Args[0])
	require.Equal(t, "cuda/10.2", s.Environment[0].Value)
	require.Equal(t, TriggerEnd, s.Identity.MailType[0])
}
