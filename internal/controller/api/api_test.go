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

package api

import (
	"context"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
	"github.com/sylabs/slurm-launcher/pkg/slurm/local"
	"github.com/sylabs/slurm-launcher/pkg/slurm/rest"
)

type fakeSlurm struct {
	*local.Client

	batchID   int64
	batchErr  error
	scripts   []string
	infos     []*slurm.JobInfo
	cancelled []int64
	limits    *slurm.Resources
}

func (f *fakeSlurm) SBatch(_ context.Context, script string) (int64, error) {
	f.scripts = append(f.scripts, script)
	return f.batchID, f.batchErr
}

func (f *fakeSlurm) SCancel(_ context.Context, id int64) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeSlurm) SAcct(context.Context, int64) ([]*slurm.JobInfo, error) {
	return f.infos, nil
}

func (f *fakeSlurm) Partition(_ context.Context, name string) (*slurm.Resources, error) {
	if f.limits == nil {
		return nil, errors.Errorf("partition %s not found", name)
	}
	return f.limits, nil
}

func newTestServer(_ *testing.T, s slurm.Slurm, roots ...string) (*httptest.Server, func()) {
	router := NewSlurmRouter(s, roots...)
	srv := httptest.NewServer(router)
	return srv, func() {
		srv.CloseClientConnections()
		srv.Close()
	}
}

func TestApi_Open(t *testing.T) {
	testFile, err := ioutil.TempFile("", "")
	require.NoError(t, err)
	defer os.Remove(testFile.Name())

	fileContent := []byte(`
Epoch 1: loss 0.693
Epoch 2: loss 0.412
`)

	_, err = testFile.Write(fileContent)
	require.NoError(t, err)
	require.NoError(t, testFile.Close())

	srv, cleanup := newTestServer(t, &fakeSlurm{})
	defer cleanup()

	t.Run("no path", func(t *testing.T) {
		resp, err := srv.Client().Get(fmt.Sprintf("%s/open", srv.URL))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		content, err := ioutil.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "no path query parameter is found\n", string(content))
	})

	t.Run("non existent file", func(t *testing.T) {
		resp, err := srv.Client().Get(fmt.Sprintf("%s/open?path=/foo/bar", srv.URL))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("all ok", func(t *testing.T) {
		resp, err := srv.Client().Get(fmt.Sprintf("%s/open?path=%s", srv.URL, testFile.Name()))
		require.NoError(t, err)
		defer resp.Body.Close()

		content, err := ioutil.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, fileContent, content, "unexpected file content")
	})

	t.Run("outside of roots", func(t *testing.T) {
		srv, cleanup := newTestServer(t, &fakeSlurm{}, "/scratch/jobs")
		defer cleanup()

		resp, err := srv.Client().Get(fmt.Sprintf("%s/open?path=%s", srv.URL, testFile.Name()))
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestApi_SBatch(t *testing.T) {
	t.Run("empty script", func(t *testing.T) {
		srv, cleanup := newTestServer(t, &fakeSlurm{})
		defer cleanup()

		resp, err := srv.Client().Post(srv.URL+"/sbatch", "application/json", strings.NewReader(`{"script":""}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid body", func(t *testing.T) {
		srv, cleanup := newTestServer(t, &fakeSlurm{})
		defer cleanup()

		resp, err := srv.Client().Post(srv.URL+"/sbatch", "application/json", strings.NewReader(`{`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		srv, cleanup := newTestServer(t, &fakeSlurm{})
		defer cleanup()

		resp, err := srv.Client().Get(srv.URL + "/sbatch")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestRestClient(t *testing.T) {
	started := time.Date(2019, 2, 20, 11, 16, 55, 0, time.UTC)
	fs := &fakeSlurm{
		batchID: 42,
		infos: []*slurm.JobInfo{
			{ID: "42", Name: "train", State: slurm.JobStatusRunning, StartedAt: &started},
		},
		limits: &slurm.Resources{Nodes: 4, CPUPerNode: 16, MemPerNode: -1, WallTime: 48 * time.Hour},
	}
	srv, cleanup := newTestServer(t, fs)
	defer cleanup()

	c, err := rest.NewClient(rest.Config{ControllerAddress: srv.URL + "/", TimeOut: 5})
	require.NoError(t, err)
	ctx := context.Background()

	id, err := c.SBatch(ctx, "#!/bin/sh\nhostname\n")
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
	require.Equal(t, []string{"#!/bin/sh\nhostname\n"}, fs.scripts)

	infos, err := c.SAcct(ctx, 42)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "train", infos[0].Name)
	require.True(t, started.Equal(*infos[0].StartedAt))

	require.NoError(t, c.SCancel(ctx, 42))
	require.Equal(t, []int64{42}, fs.cancelled)

	limits, err := c.Partition(ctx, "gpu")
	require.NoError(t, err)
	require.Equal(t, fs.limits, limits)

	_, err = c.Open("/foo/bar")
	require.Equal(t, slurm.ErrFileNotFound, err)
}

func TestRestClient_rejection(t *testing.T) {
	fs := &fakeSlurm{batchErr: errors.New("sbatch: error: invalid partition name specified")}
	srv, cleanup := newTestServer(t, fs)
	defer cleanup()

	c, err := rest.NewClient(rest.Config{ControllerAddress: srv.URL})
	require.NoError(t, err)

	_, err = c.SBatch(context.Background(), "#!/bin/sh\nhostname\n")
	require.Error(t, err)
	require.Equal(t, rest.ErrNot200, errors.Cause(err))
	require.Contains(t, err.Error(), "invalid partition name specified")
}

func TestRestClient_socket(t *testing.T) {
	dir, err := ioutil.TempDir("", "controller")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	sock := filepath.Join(dir, "controller.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)

	srv := http.Server{Handler: NewSlurmRouter(&fakeSlurm{batchID: 7})}
	go srv.Serve(ln)
	defer srv.Close()

	c, err := rest.NewClient(rest.Config{Socket: sock, TimeOut: 5})
	require.NoError(t, err)

	id, err := c.SBatch(context.Background(), "#!/bin/sh\nhostname\n")
	require.NoError(t, err)
	require.EqualValues(t, 7, id)
}
