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
)

type renderCmd struct {
	profile string
}

func (c *renderCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render SPEC",
		Short: "Print batch script submit would send for a spec",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&c.profile, "profile", "", "cluster profile whose environment steps are prepended")
	return cmd
}

func (c *renderCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	spec, err := cl.loadSpec(args[0], c.profile)
	if err != nil {
		return err
	}
	return printScript(cl, spec)
}

func printScript(cl *cli, spec *job.Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	d, err := cl.launcher().Directives(spec)
	if err != nil {
		return err
	}
	script, err := d.Script()
	if err != nil {
		return err
	}
	fmt.Print(script)
	return nil
}
