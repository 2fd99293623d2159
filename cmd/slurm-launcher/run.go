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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/sylabs/slurm-launcher/pkg/job"
)

type runCmd struct {
	inline  string
	profile string
}

func (c *runCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [SPEC]",
		Short: "Prepare environment and run job command on the allocated node",
		Long: "Run applies environment steps of a job in order and executes its command. " +
			"It exits with the command exit code. Batch scripts rendered by submit call it with --inline.",
		Args: cobra.MaximumNArgs(1),
	}
	cmd.Flags().StringVar(&c.inline, "inline", "", "job spec encoded by submit")
	cmd.Flags().StringVar(&c.profile, "profile", "", "cluster profile whose environment steps are prepended")
	return cmd
}

func (c *runCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	var (
		spec *job.Spec
		err  error
	)
	switch {
	case c.inline != "" && len(args) != 0:
		return errors.New("either spec file or --inline must be set, not both")
	case c.inline != "":
		spec, err = job.DecodeInline(c.inline)
	case len(args) == 1:
		spec, err = cl.loadSpec(args[0], c.profile)
	default:
		return errors.New("spec file or --inline must be set")
	}
	if err != nil {
		return err
	}

	// Wall clock and cancellation are enforced by Slurm, which signals
	// the whole job step including the command.
	// Exec failures come with 126 or 127, exit with those rather than 1.
	code, err := cl.launcher().Run(context.Background(), spec)
	if code != 0 {
		return &exitError{code: code, err: err}
	}
	return err
}
