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

package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	log "github.com/sirupsen/logrus"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	sacctBinaryName    = "sacct"
	sbatchBinaryName   = "sbatch"
	scancelBinaryName  = "scancel"
	scontrolBinaryName = "scontrol"
)

// Config holds ssh connection settings. Password and key are optional
// and depend on a specific ssh configuration.
type Config struct {
	User     string
	Addr     string
	Password string
	Key      []byte
	// KnownHosts is a path to known_hosts file used to verify the host.
	// Host key is not verified when empty.
	KnownHosts string
	Timeout    time.Duration
}

// Client implements Slurm interface for communicating with
// a remote Slurm cluster over ssh.
type Client struct {
	ssh *ssh.Client
}

// NewClient initializes new ssh client that will be interacting with Slurm cluster.
func NewClient(c Config) (*Client, error) {
	var auth []ssh.AuthMethod
	if c.Key != nil {
		sig, err := ssh.ParsePrivateKey(c.Key)
		if err != nil {
			return nil, errors.Wrap(err, "could not parse private key")
		}
		auth = append(auth, ssh.PublicKeys(sig))
	}

	if c.Password != "" {
		auth = append(auth, ssh.Password(c.Password))
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if c.KnownHosts != "" {
		cb, err := knownhosts.New(c.KnownHosts)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read known hosts %s", c.KnownHosts)
		}
		hostKey = cb
	} else {
		log.WithField("addr", c.Addr).Warn("Host key verification is disabled")
	}

	cc := &ssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         c.Timeout,
	}

	client, err := ssh.Dial("tcp", c.Addr, cc)
	if err != nil {
		return nil, errors.Wrapf(err, "could not dial %s", c.Addr)
	}

	return &Client{ssh: client}, nil
}

// Close closes underlying ssh connection.
func (c *Client) Close() error {
	return c.ssh.Close()
}

// SBatch submits batch job and returns job id if succeeded.
func (c *Client) SBatch(ctx context.Context, script string) (int64, error) {
	out, err := c.run(ctx, fmt.Sprintf("%s --parsable", sbatchBinaryName), bytes.NewBufferString(script))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to execute sbatch: %s", strings.TrimSpace(string(out)))
	}

	return slurm.ParseJobID(string(out))
}

// SCancel cancels batch job.
func (c *Client) SCancel(ctx context.Context, jobID int64) error {
	out, err := c.run(ctx, fmt.Sprintf("%s %d", scancelBinaryName, jobID), nil)
	if err != nil {
		return errors.Wrapf(err, "failed to execute scancel: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

// SAcct returns information about a submitted batch job.
func (c *Client) SAcct(ctx context.Context, jobID int64) ([]*slurm.JobInfo, error) {
	cmd := fmt.Sprintf("%s -p -n -j %d -o %s", sacctBinaryName, jobID, slurm.SacctFormat)
	out, err := c.run(ctx, cmd, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute sacct: %s", strings.TrimSpace(string(out)))
	}

	jInfo, err := slurm.ParseSacctResponse(string(out))
	if err != nil {
		return nil, errors.Wrap(err, slurm.ErrInvalidSacctResponse.Error())
	}

	return jInfo, nil
}

// Partition returns resource limits of a partition from scontrol.
func (c *Client) Partition(ctx context.Context, name string) (*slurm.Resources, error) {
	if err := slurm.CheckPartitionName(name); err != nil {
		return nil, err
	}

	out, err := c.run(ctx, fmt.Sprintf("%s show partition %s", scontrolBinaryName, name), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute scontrol: %s", strings.TrimSpace(string(out)))
	}

	return slurm.ParseResources(string(out))
}

// Open opens file on a remote host in a read-only mode.
func (c *Client) Open(path string) (io.ReadCloser, error) {
	sC, err := sftp.NewClient(c.ssh)
	if err != nil {
		return nil, errors.Wrap(err, "could not create sftp client")
	}

	file, err := sC.Open(path)
	if err != nil {
		sC.Close()
		if os.IsNotExist(err) {
			return nil, slurm.ErrFileNotFound
		}
		return nil, errors.Wrapf(err, "could not open %s", path)
	}
	return &remoteFile{File: file, client: sC}, nil
}

// run executes cmd in a new session. Session is terminated
// when ctx is done before cmd exits.
func (c *Client) run(ctx context.Context, cmd string, stdin io.Reader) ([]byte, error) {
	s, err := c.ssh.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "could not create new ssh session")
	}
	defer s.Close()

	if stdin != nil {
		s.Stdin = stdin
	}

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := s.CombinedOutput(cmd)
		done <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		_ = s.Signal(ssh.SIGKILL)
		return nil, ctx.Err()
	case r := <-done:
		return r.out, r.err
	}
}

type remoteFile struct {
	*sftp.File
	client *sftp.Client
}

func (f *remoteFile) Close() error {
	err := f.File.Close()
	if cErr := f.client.Close(); err == nil {
		err = cErr
	}
	return err
}
