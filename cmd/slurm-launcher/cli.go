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
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/sylabs/slurm-launcher/internal/config"
	"github.com/sylabs/slurm-launcher/pkg/job"
	"github.com/sylabs/slurm-launcher/pkg/launcher"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

type cli struct {
	rootCmd *cobra.Command

	configPath string
	logLevel   string

	cfg    *config.Config
	client slurm.Slurm
}

type command interface {
	registerFlags() *cobra.Command
	run(c *cli, cmd *cobra.Command, args []string) error
}

func newCLI() *cli {
	c := &cli{}
	c.rootCmd = &cobra.Command{
		Use:               "slurm-launcher",
		Short:             "slurm-launcher submits batch jobs to Slurm and runs them on allocated nodes",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	c.rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a launcher config")
	c.rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	c.addCmd(&submitCmd{})
	c.addCmd(&runCmd{})
	c.addCmd(&renderCmd{})
	c.addCmd(&importCmd{})
	c.addCmd(&trainCmd{})
	c.addCmd(&statusCmd{})
	c.addCmd(&waitCmd{})
	c.addCmd(&cancelCmd{})
	c.addCmd(&logsCmd{})
	c.addCmd(&limitsCmd{})
	return c
}

func (c *cli) addCmd(cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(c, innerCmd, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

func (c *cli) setup(*cobra.Command, []string) error {
	lvl, err := log.ParseLevel(c.logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)

	if c.configPath == "" {
		c.cfg = config.Default()
		return nil
	}
	c.cfg, err = config.Load(c.configPath)
	return err
}

func (c *cli) close() {
	if closer, ok := c.client.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warnf("Could not close slurm client: %v", err)
		}
	}
}

// dial connects to a cluster with the configured transport.
func (c *cli) dial() (slurm.Slurm, error) {
	if c.client == nil {
		client, err := newSlurmClient(c.cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "could not create %s slurm client", c.cfg.Transport)
		}
		c.client = client
	}
	return c.client, nil
}

// launcher returns launcher that does not need cluster access, e.g. for rendering.
func (c *cli) launcher() *launcher.Launcher {
	return launcher.New(launcher.Config{
		Entrypoint: c.cfg.Entrypoint,
		Partition:  c.cfg.Partition,
		Shell:      launcher.NewSystemShell(),
	})
}

// connectedLauncher returns launcher talking to the cluster.
func (c *cli) connectedLauncher() (*launcher.Launcher, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	return launcher.New(launcher.Config{
		Slurm:      client,
		Entrypoint: c.cfg.Entrypoint,
		Partition:  c.cfg.Partition,
	}), nil
}

func (c *cli) loadSpec(path, profile string) (*job.Spec, error) {
	spec, err := job.LoadFile(path, c.cfg.Profiles)
	if err != nil {
		return nil, err
	}
	if profile != "" {
		return spec.WithProfile(profile, c.cfg.Profiles)
	}
	return spec, nil
}
