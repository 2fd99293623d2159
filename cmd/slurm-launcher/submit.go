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
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/sylabs/slurm-launcher/pkg/job"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

type submitCmd struct {
	profile string
	follow  followOptions
}

// followOptions control what happens after a job is submitted.
type followOptions struct {
	wait      bool
	collectTo string
}

func (o *followOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.wait, "wait", false, "wait for the job to finish")
	cmd.Flags().StringVar(&o.collectTo, "collect-to", "",
		"directory job output is copied to after the job completes, implies --wait")
}

func (c *submitCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit SPEC",
		Short: "Submit a job described by a YAML spec",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&c.profile, "profile", "", "cluster profile whose environment steps are prepended")
	c.follow.register(cmd)
	return cmd
}

func (c *submitCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	spec, err := cl.loadSpec(args[0], c.profile)
	if err != nil {
		return err
	}
	return submit(cl, spec, c.follow)
}

func submit(cl *cli, spec *job.Spec, o followOptions) error {
	l, err := cl.connectedLauncher()
	if err != nil {
		return err
	}

	ctx := context.Background()
	id, err := l.Submit(ctx, spec)
	if err != nil {
		return err
	}
	fmt.Println(id)

	if !o.wait && o.collectTo == "" {
		return nil
	}

	info, err := l.Wait(ctx, id)
	if err != nil {
		return err
	}
	printJobInfo(info)

	if o.collectTo != "" {
		to, err := l.Collect(id, spec.Output, o.collectTo)
		if err != nil {
			return err
		}
		log.Infof("Job output collected to %s", to)
	}

	if state := slurm.BaseState(info.State); state != slurm.JobStatusCompleted {
		return errors.Errorf("job %s finished with state %s", id, state)
	}
	return nil
}
