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
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// SAcct returns information about a submitted batch job.
func (a *api) SAcct(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	sinfo, err := a.slurm.SAcct(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		log.WithError(err).WithField("job_id", id).Error("Could not get job info")
		return
	}

	writeJSON(w, sinfo)
}

// SCancel cancels batch job.
func (a *api) SCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	if err := a.slurm.SCancel(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		log.WithError(err).WithField("job_id", id).Error("Could not cancel job")
		return
	}
	log.WithField("job_id", id).Info("Job cancelled")
}

// Partition returns resource limits of a partition.
func (a *api) Partition(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	res, err := a.slurm.Partition(r.Context(), name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		log.WithError(err).WithField("partition", name).Error("Could not get partition limits")
		return
	}

	writeJSON(w, res)
}

func jobID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idS, ok := mux.Vars(r)["id"]
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return 0, false
	}

	id, err := strconv.ParseInt(idS, 10, 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		log.WithError(err).Error("Could not encode response")
	}
}
