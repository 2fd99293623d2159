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

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

const (
	slurmBatchEndpointT     = "%s/sbatch"
	slurmSacctEndpointT     = "%s/sacct/%d"
	slurmScancelEndpointT   = "%s/scancel/%d"
	slurmPartitionEndpointT = "%s/partition/%s"
	slurmOpenEndpointT      = "%s/open?path=%s"
)

var (
	// ErrNot200 is returned whenever an HTTP request results in a status code other than 200.
	ErrNot200 = errors.New("not 200 code in response")
)

// Config is a Client's config that will be used for each outgoing HTTP call.
type Config struct {
	// ControllerAddress is a Slurm controller address to connect to.
	// Slurm controller is located on a Slurm submission host, in other words
	// Slurm controller is a local Slurm client that serves HTTP requests.
	ControllerAddress string
	// Socket is an optional path to a unix socket controller listens on.
	// When set all requests are sent over it and ControllerAddress host is ignored.
	Socket string
	// TimeOut is an HTTP timeout in seconds that should be respected
	// during all HTTP calls except file streaming.
	TimeOut int64
}

// SBatchRequest is a body of a batch submission request.
type SBatchRequest struct {
	Script string `json:"script"`
}

// Client implements Slurm interface for communicating with
// a remote Slurm cluster over HTTP.
type Client struct {
	conf Config
	cl   *http.Client
}

// NewClient initializes new HTTP client that will be interacting with Slurm cluster.
func NewClient(c Config) (*Client, error) {
	if c.ControllerAddress == "" {
		if c.Socket == "" {
			return nil, errors.New("controller address or socket must be set")
		}
		c.ControllerAddress = "http://controller"
	}
	c.ControllerAddress = strings.TrimSuffix(c.ControllerAddress, "/")

	transport := &http.Transport{}
	if c.Socket != "" {
		socket := c.Socket
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socket)
		}
	}

	return &Client{
		cl: &http.Client{
			Transport: transport,
		},
		conf: c,
	}, nil
}

// SBatch submits batch job and returns job id if succeeded.
func (c *Client) SBatch(ctx context.Context, script string) (int64, error) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(SBatchRequest{Script: script}); err != nil {
		return 0, errors.Wrap(err, "could not encode request")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf(slurmBatchEndpointT, c.conf.ControllerAddress), &body)
	if err != nil {
		return 0, errors.Wrap(err, "could not create sbatch request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cl.Do(req.WithContext(ctx))
	if err != nil {
		return 0, errors.Wrap(err, "could not send sbatch request")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return 0, err
	}

	idS, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return 0, errors.Wrap(err, "could not read response body")
	}

	return slurm.ParseJobID(string(idS))
}

// SCancel cancels batch job.
func (c *Client) SCancel(ctx context.Context, id int64) error {
	resp, err := c.get(ctx, fmt.Sprintf(slurmScancelEndpointT, c.conf.ControllerAddress, id))
	if err != nil {
		return errors.Wrap(err, "could not send scancel request")
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// SAcct returns information about a submitted batch job.
func (c *Client) SAcct(ctx context.Context, id int64) ([]*slurm.JobInfo, error) {
	resp, err := c.get(ctx, fmt.Sprintf(slurmSacctEndpointT, c.conf.ControllerAddress, id))
	if err != nil {
		return nil, errors.Wrap(err, "could not send sacct request")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var infos []*slurm.JobInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		return nil, errors.Wrap(err, "could not decode sacct response")
	}

	return infos, nil
}

// Partition returns resource limits of a partition.
func (c *Client) Partition(ctx context.Context, name string) (*slurm.Resources, error) {
	resp, err := c.get(ctx, fmt.Sprintf(slurmPartitionEndpointT, c.conf.ControllerAddress, url.PathEscape(name)))
	if err != nil {
		return nil, errors.Wrap(err, "could not send partition request")
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var res slurm.Resources
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, errors.Wrap(err, "could not decode partition response")
	}

	return &res, nil
}

// Open opens arbitrary file in a read-only mode on
// Slurm cluster, e.g. for collecting job results.
// It is a caller's responsibility to call Close on the returned
// file to free any allocated resources.
func (c *Client) Open(path string) (io.ReadCloser, error) {
	resp, err := c.cl.Get(fmt.Sprintf(slurmOpenEndpointT, c.conf.ControllerAddress, url.QueryEscape(path)))
	if err != nil {
		return nil, errors.Wrap(err, "could not send open request")
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, slurm.ErrFileNotFound
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	resp, err := c.cl.Do(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.conf.TimeOut <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Second*time.Duration(c.conf.TimeOut))
}

// checkStatus turns non 200 response into an error carrying
// the controller's explanation.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	msg, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 4096))
	if m := strings.TrimSpace(string(msg)); m != "" {
		return errors.Wrapf(ErrNot200, "%s: %s", resp.Status, m)
	}
	return errors.Wrap(ErrNot200, resp.Status)
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
