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
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/sylabs/slurm-launcher/pkg/launcher"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

type statusCmd struct{}

func (c *statusCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Print accounting records of a job",
		Args:  cobra.ExactArgs(1),
	}
}

func (c *statusCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	l, err := cl.connectedLauncher()
	if err != nil {
		return err
	}
	infos, err := l.Status(context.Background(), launcher.JobID(args[0]))
	if err != nil {
		return err
	}
	return printJSON(infos)
}

type waitCmd struct{}

func (c *waitCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "wait JOB_ID",
		Short: "Wait for a job to finish",
		Args:  cobra.ExactArgs(1),
	}
}

func (c *waitCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	l, err := cl.connectedLauncher()
	if err != nil {
		return err
	}
	info, err := l.Wait(context.Background(), launcher.JobID(args[0]))
	if err != nil {
		return err
	}
	printJobInfo(info)
	return nil
}

type cancelCmd struct{}

func (c *cancelCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Cancel a job",
		Args:  cobra.ExactArgs(1),
	}
}

func (c *cancelCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	l, err := cl.connectedLauncher()
	if err != nil {
		return err
	}
	return l.Cancel(context.Background(), launcher.JobID(args[0]))
}

type logsCmd struct {
	file   string
	follow bool
	saveTo string
}

func (c *logsCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs JOB_ID",
		Short: "Print job output",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&c.file, "file", "", "output file, slurm-<id>.out when empty, %j is replaced with job id")
	cmd.Flags().BoolVarP(&c.follow, "follow", "f", false, "keep printing output as it grows")
	cmd.Flags().StringVar(&c.saveTo, "save-to", "", "copy output into a directory instead of printing it")
	return cmd
}

func (c *logsCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	l, err := cl.connectedLauncher()
	if err != nil {
		return err
	}
	id := launcher.JobID(args[0])

	if c.saveTo != "" {
		to, err := l.Collect(id, c.file, c.saveTo)
		if err != nil {
			return err
		}
		fmt.Println(to)
		return nil
	}

	r, err := l.Output(id, c.file, c.follow)
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.Copy(os.Stdout, r)
	return err
}

type limitsCmd struct{}

func (c *limitsCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "limits [PARTITION]",
		Short: "Print resource limits of a partition",
		Args:  cobra.MaximumNArgs(1),
	}
}

func (c *limitsCmd) run(cl *cli, cmd *cobra.Command, args []string) error {
	l, err := cl.connectedLauncher()
	if err != nil {
		return err
	}

	var partition string
	if len(args) == 1 {
		partition = args[0]
	}
	res, err := l.Limits(context.Background(), partition)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJobInfo(info *slurm.JobInfo) {
	log.WithFields(log.Fields{
		"job_id":    info.ID,
		"name":      info.Name,
		"state":     info.State,
		"exit_code": info.ExitCode,
	}).Info("Job finished")
}
