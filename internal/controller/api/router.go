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
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

type api struct {
	slurm slurm.Slurm
	roots []string
}

// NewSlurmRouter creates new HTTP router that can be used for
// serving Slurm HTTP requests. When roots are passed only files
// under them are served by /open.
func NewSlurmRouter(sClient slurm.Slurm, roots ...string) *mux.Router {
	a := &api{slurm: sClient}
	for _, r := range roots {
		a.roots = append(a.roots, filepath.Clean(r))
	}

	r := mux.NewRouter()
	r.HandleFunc("/sbatch", a.SBatch).Methods(http.MethodPost)
	r.HandleFunc("/sacct/{id:[0-9]+}", a.SAcct).Methods(http.MethodGet)
	r.HandleFunc("/scancel/{id:[0-9]+}", a.SCancel).Methods(http.MethodGet)
	r.HandleFunc("/partition/{name}", a.Partition).Methods(http.MethodGet)
	r.HandleFunc("/open", a.Open).Methods(http.MethodGet)
	r.Use(logRequests)

	return r
}

func (a *api) allowed(path string) bool {
	if len(a.roots) == 0 {
		return true
	}

	path = filepath.Clean(path)
	for _, r := range a.roots {
		if path == r || strings.HasPrefix(path, r+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Debug("Serving request")
		next.ServeHTTP(w, r)
	})
}
