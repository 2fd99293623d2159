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
	"github.com/pkg/errors"
	"github.com/sylabs/slurm-launcher/internal/config"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
	"github.com/sylabs/slurm-launcher/pkg/slurm/local"
	"github.com/sylabs/slurm-launcher/pkg/slurm/rest"
	"github.com/sylabs/slurm-launcher/pkg/slurm/ssh"
)

func newSlurmClient(cfg *config.Config) (slurm.Slurm, error) {
	switch cfg.Transport {
	case config.TransportLocal:
		c, err := local.NewClient()
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.TransportSSH:
		c, err := ssh.NewClient(ssh.Config{
			User:       cfg.SSH.User,
			Addr:       cfg.SSH.Addr,
			Password:   cfg.SSH.Password,
			Key:        cfg.SSH.Key,
			KnownHosts: cfg.SSH.KnownHosts,
			Timeout:    cfg.SSH.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.TransportREST:
		c, err := rest.NewClient(rest.Config{
			ControllerAddress: cfg.REST.Address,
			Socket:            cfg.REST.Socket,
			TimeOut:           int64(cfg.REST.Timeout.Seconds()),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, errors.Errorf("unknown transport %q", cfg.Transport)
}
