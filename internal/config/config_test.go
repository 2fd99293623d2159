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

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sylabs/slurm-launcher/pkg/job"
)

func setEnv(t *testing.T, key, value string) func() {
	old, ok := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	return func() {
		if ok {
			os.Setenv(key, old)
			return
		}
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "launcher-config-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	keyPath := filepath.Join(dir, "id_rsa")
	require.NoError(t, ioutil.WriteFile(keyPath, []byte("private key"), 0600))

	cfg := `
transport: ssh
ssh:
  addr: login.cluster.org:22
  user: gasp
  key_file: ` + keyPath + `
  timeout: 5s
entrypoint: [/opt/bin/slurm-launcher, --log-level=debug]
partition: gpu
profiles:
  cluster-gpu:
    - load cuda/10.2
    - activate env:pytorch_env
controller:
  open_roots: [/scratch]
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(cfg), 0644))

	defer setEnv(t, EnvSSHPassword, "secret")()
	defer setEnv(t, EnvSSHUser, "")()
	defer setEnv(t, EnvSSHKey, "")()

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, &Config{
		Transport: TransportSSH,
		SSH: SSH{
			Addr:     "login.cluster.org:22",
			User:     "gasp",
			KeyFile:  keyPath,
			Timeout:  5 * time.Second,
			Password: "secret",
			Key:      []byte("private key"),
		},
		REST:       REST{Timeout: defaultRESTTimeout},
		Entrypoint: []string{"/opt/bin/slurm-launcher", "--log-level=debug"},
		Partition:  "gpu",
		Profiles: job.Profiles{
			"cluster-gpu": {
				{Kind: job.StepModule, Value: "cuda/10.2"},
				{Kind: job.StepConda, Value: "pytorch_env"},
			},
		},
		Controller: Controller{Socket: defaultSocket, OpenRoots: []string{"/scratch"}},
	}, c)
}

func TestDecode_env(t *testing.T) {
	defer setEnv(t, EnvSSHUser, "operator")()
	defer setEnv(t, EnvSSHKey, "inline key")()

	c, err := Decode(strings.NewReader("transport: ssh\nssh: {addr: localhost:22, key_file: /does/not/exist}\n"))
	require.NoError(t, err)
	require.Equal(t, "operator", c.SSH.User)
	require.Equal(t, []byte("inline key"), c.SSH.Key)
}

func TestDecode_empty(t *testing.T) {
	c, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, Default().Transport, c.Transport)
	require.Equal(t, defaultSSHTimeout, c.SSH.Timeout)
	require.Equal(t, defaultSocket, c.Controller.Socket)
}

func TestDecode_errors(t *testing.T) {
	tt := []struct {
		name        string
		in          string
		expectError string
	}{
		{
			name:        "unknown transport",
			in:          "transport: carrier-pigeon",
			expectError: `unknown transport "carrier-pigeon"`,
		},
		{
			name:        "ssh without addr",
			in:          "transport: ssh\nssh: {user: gasp}",
			expectError: "ssh.addr must be set for ssh transport",
		},
		{
			name:        "rest without address",
			in:          "transport: rest",
			expectError: "rest.address or rest.socket must be set for rest transport",
		},
		{
			name:        "unknown field",
			in:          "transport: local\npartitions: [gpu]",
			expectError: "field partitions not found",
		},
		{
			name:        "bad profile step",
			in:          "profiles:\n  gpu: [export 1=2]",
			expectError: `profile gpu step 1: invalid variable name "1"`,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.in))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.expectError)
		})
	}
}
