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

	log "github.com/sirupsen/logrus"
	"github.com/sylabs/slurm-launcher/pkg/slurm/rest"
)

// SBatch submits batch job and returns job id if succeeded.
// Rejections are reported with 422 and sbatch diagnostics in the body.
func (a *api) SBatch(w http.ResponseWriter, r *http.Request) {
	var sb rest.SBatchRequest

	if err := json.NewDecoder(r.Body).Decode(&sb); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.WithError(err).Error("Could not decode sbatch request")
		return
	}

	if sb.Script == "" {
		http.Error(w, "script must not be empty", http.StatusBadRequest)
		return
	}

	jid, err := a.slurm.SBatch(r.Context(), sb.Script)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		log.WithError(err).Warn("Batch job rejected")
		return
	}

	log.WithField("job_id", jid).Info("Batch job submitted")
	w.Write([]byte(strconv.FormatInt(jid, 10)))
}
