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

// Package config loads slurm-launcher configuration.
package config

import (
	"io"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sylabs/slurm-launcher/pkg/job"
	"gopkg.in/yaml.v2"
)

// Environment variables that override ssh credentials from a config file.
const (
	EnvSSHUser     = "SSH_USER"
	EnvSSHPassword = "SSH_PASSWORD"
	EnvSSHKey      = "SSH_KEY"
)

// Transport selects how a Slurm cluster is reached.
type Transport string

// Supported transports.
const (
	TransportLocal Transport = "local"
	TransportSSH   Transport = "ssh"
	TransportREST  Transport = "rest"
)

const (
	defaultSSHTimeout  = 30 * time.Second
	defaultRESTTimeout = 10 * time.Second
	defaultSocket      = "/var/run/syslurm/controller.sock"
)

// Config is a launcher configuration.
type Config struct {
	Transport Transport `yaml:"transport"`
	SSH       SSH       `yaml:"ssh,omitempty"`
	REST      REST      `yaml:"rest,omitempty"`

	// Entrypoint is a command line of slurm-launcher on compute nodes.
	Entrypoint []string `yaml:"entrypoint,omitempty"`
	// Partition is used for jobs that request none.
	Partition string       `yaml:"partition,omitempty"`
	Profiles  job.Profiles `yaml:"profiles,omitempty"`

	Controller Controller `yaml:"controller,omitempty"`
}

// SSH configures ssh transport. Password and key are never read from
// the config file, they come from SSH_PASSWORD and SSH_KEY instead.
type SSH struct {
	Addr       string        `yaml:"addr"`
	User       string        `yaml:"user"`
	KeyFile    string        `yaml:"key_file,omitempty"`
	KnownHosts string        `yaml:"known_hosts,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`

	Password string `yaml:"-"`
	Key      []byte `yaml:"-"`
}

// REST configures transport talking to a Slurm controller.
type REST struct {
	Address string        `yaml:"address,omitempty"`
	Socket  string        `yaml:"socket,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Controller configures the HTTP facade over local Slurm binaries.
type Controller struct {
	Socket string `yaml:"socket,omitempty"`
	// OpenRoots restrict files the controller serves, any file is served when empty.
	OpenRoots []string `yaml:"open_roots,omitempty"`
}

// Default returns configuration used when no config file is given.
func Default() *Config {
	c := &Config{Transport: TransportLocal}
	c.setDefaults()
	return c
}

// Load reads config from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open config")
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return c, nil
}

// Decode reads config from r and applies environment overrides.
func Decode(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)

	var c Config
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "could not decode config")
	}
	c.setDefaults()
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that selected transport is fully configured.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportLocal:
	case TransportSSH:
		if c.SSH.Addr == "" {
			return errors.New("ssh.addr must be set for ssh transport")
		}
		if c.SSH.User == "" {
			return errors.New("ssh.user must be set for ssh transport")
		}
	case TransportREST:
		if c.REST.Address == "" && c.REST.Socket == "" {
			return errors.New("rest.address or rest.socket must be set for rest transport")
		}
	default:
		return errors.Errorf("unknown transport %q", c.Transport)
	}

	for name, steps := range c.Profiles {
		for i, s := range steps {
			if err := s.Validate(); err != nil {
				return errors.Wrapf(err, "profile %s step %d", name, i+1)
			}
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Transport == "" {
		c.Transport = TransportLocal
	}
	if c.SSH.Timeout == 0 {
		c.SSH.Timeout = defaultSSHTimeout
	}
	if c.REST.Timeout == 0 {
		c.REST.Timeout = defaultRESTTimeout
	}
	if c.Controller.Socket == "" {
		c.Controller.Socket = defaultSocket
	}
}

func (c *Config) applyEnv() error {
	if u := os.Getenv(EnvSSHUser); u != "" {
		c.SSH.User = u
	}
	c.SSH.Password = os.Getenv(EnvSSHPassword)

	if k := os.Getenv(EnvSSHKey); k != "" {
		c.SSH.Key = []byte(k)
		return nil
	}
	if c.SSH.KeyFile != "" && c.Transport == TransportSSH {
		key, err := ioutil.ReadFile(c.SSH.KeyFile)
		if err != nil {
			return errors.Wrap(err, "could not read ssh key")
		}
		c.SSH.Key = key
	}
	return nil
}
