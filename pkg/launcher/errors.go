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

package launcher

import (
	"fmt"

	"github.com/sylabs/slurm-launcher/pkg/job"
)

// SchedulerRejectedError is returned when a workload manager refuses
// a submission. It is never retried automatically, a caller may resubmit
// a corrected spec.
type SchedulerRejectedError struct {
	Reason string
}

func (e *SchedulerRejectedError) Error() string {
	return "job rejected by scheduler: " + e.Reason
}

// EnvironmentSetupError is returned when an environment step fails on
// the allocated node. Index is 1-based position of the failed step.
// The command is never executed after such failure.
type EnvironmentSetupError struct {
	Index   int
	Step    job.Step
	Message string
}

func (e *EnvironmentSetupError) Error() string {
	return fmt.Sprintf("environment step %d (%s) failed: %s", e.Index, e.Step, e.Message)
}
