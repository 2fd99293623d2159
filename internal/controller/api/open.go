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
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

// Open streams content of an arbitrary file.
func (a *api) Open(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "no path query parameter is found", http.StatusBadRequest)
		return
	}

	if !a.allowed(path) {
		http.Error(w, "path is outside of served directories", http.StatusForbidden)
		return
	}

	file, err := a.slurm.Open(path)
	if err == slurm.ErrFileNotFound {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer file.Close()

	if _, err = io.Copy(w, file); err != nil {
		log.WithError(err).WithField("path", path).Error("Could not stream file")
	}
}
