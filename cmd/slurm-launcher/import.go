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
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/sylabs/slurm-launcher/pkg/job"
)

type importCmd struct{}

func (c *importCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "import SCRIPT",
		Short: "Convert an sbatch script into a job spec",
		Args:  cobra.ExactArgs(1),
	}
}

func (c *importCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	script, err := ioutil.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "could not read batch script")
	}

	spec, ignored, err := job.FromScript(string(script))
	if err != nil {
		return err
	}
	for _, name := range ignored {
		log.Warnf("Directive --%s has no spec counterpart and is dropped", name)
	}
	if err := spec.Validate(); err != nil {
		log.Warnf("Imported spec needs editing: %v", err)
	}
	return spec.Encode(os.Stdout)
}
