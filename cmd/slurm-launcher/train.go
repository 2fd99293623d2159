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

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sylabs/slurm-launcher/pkg/job"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

// trainCmd builds a training job from typed arguments instead of a spec file.
type trainCmd struct {
	args       job.TrainArgs
	positional bool
	python     string
	script     string
	profile    string
	steps      []string

	nodes     int
	wallClock string
	partition string
	gpuType   string
	gpus      int
	tasks     int

	name     string
	mailUser string
	mailType []string
	output   string

	dryRun bool
	follow followOptions
}

func (c *trainCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Submit a training job",
		Args:  cobra.NoArgs,
	}

	f := cmd.Flags()
	f.Float64Var(&c.args.NodeNoiseStd, "node-noise-std", 0.02, "standard deviation of node noise")
	f.StringVar(&c.args.TrainingSplit, "split", "cv", fmt.Sprintf("training split, one of %v", job.TrainingSplits))
	f.IntVar(&c.args.Tasks, "n-tasks", 8, "number of cpu workers")
	f.StringVar(&c.args.Model, "model", "", fmt.Sprintf("GNN architecture, one of %v, script default when empty", job.TrainingModels))
	f.IntVar(&c.args.Epochs, "epochs", 0, "number of training epochs, script default when 0")
	f.BoolVar(&c.positional, "positional", false, "pass <noise> <split> <tasks> positionally to a wrapper script")
	f.StringVar(&c.python, "python", "python", "python interpreter")
	f.StringVar(&c.script, "script", "train.py", "training script")
	f.StringVar(&c.profile, "profile", "", "cluster profile whose environment steps are prepended")
	f.StringArrayVar(&c.steps, "step", nil, "environment step, e.g. 'load cuda/10.2', may be repeated")

	f.IntVar(&c.nodes, "nodes", 1, "number of nodes")
	f.StringVar(&c.wallClock, "time", "24:00:00", "wall clock limit")
	f.StringVar(&c.partition, "partition", "", "partition, config default when empty")
	f.StringVar(&c.gpuType, "gpu-type", "", "GPU type")
	f.IntVar(&c.gpus, "gpus", 0, "GPUs per node")
	f.IntVar(&c.tasks, "tasks-per-node", 1, "tasks per node")

	f.StringVar(&c.name, "name", "", "job name")
	f.StringVar(&c.mailUser, "mail-user", "", "address notifications are sent to")
	f.StringSliceVar(&c.mailType, "mail-type", nil, "notification triggers: START, END, FAIL, ALL")
	f.StringVar(&c.output, "output", "", "job output path, %j is replaced with job id")

	f.BoolVar(&c.dryRun, "dry-run", false, "print batch script instead of submitting it")
	c.follow.register(cmd)
	return cmd
}

func (c *trainCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	spec, err := c.spec(cl.cfg.Profiles)
	if err != nil {
		return err
	}

	if c.dryRun {
		return printScript(cl, spec)
	}
	return submit(cl, spec, c.follow)
}

func (c *trainCmd) spec(profiles job.Profiles) (*job.Spec, error) {
	if err := c.args.Validate(); err != nil {
		return nil, err
	}

	wall, err := slurm.ParseDuration(c.wallClock)
	if err != nil {
		return nil, &job.InvalidSpecError{Field: "resources.wall_clock", Reason: err.Error()}
	}

	spec := &job.Spec{
		Resources: job.Resources{
			Nodes:        c.nodes,
			WallClock:    *wall,
			Partition:    c.partition,
			GPUType:      c.gpuType,
			GPUs:         c.gpus,
			TasksPerNode: c.tasks,
		},
		Identity: job.Identity{
			Name:     c.name,
			MailUser: c.mailUser,
		},
		Output: c.output,
	}
	if c.positional {
		spec.Command = job.NewCommand(c.python, []string{c.script}, c.args)
	} else {
		spec.Command = job.Command{Executable: c.python, Args: append([]string{c.script}, c.args.Flags()...)}
	}
	for _, t := range c.mailType {
		spec.Identity.MailType = append(spec.Identity.MailType, job.Trigger(t))
	}
	for _, s := range c.steps {
		spec.Environment = append(spec.Environment, job.ParseStep(s))
	}

	if c.profile == "" {
		return spec, nil
	}
	return spec.WithProfile(c.profile, profiles)
}
