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

package job

import (
	"github.com/pkg/errors"
)

// State is a lifecycle state of a job.
type State int

// Job lifecycle states.
const (
	Created State = iota
	Validated
	Submitted
	Running
	Completed
	EnvironmentFailed
	Rejected
)

// ErrIllegalTransition is returned when a job is moved between states
// that are not connected.
var ErrIllegalTransition = errors.New("illegal state transition")

var stateNames = map[State]string{
	Created:           "Created",
	Validated:         "Validated",
	Submitted:         "Submitted",
	Running:           "Running",
	Completed:         "Completed",
	EnvironmentFailed: "EnvironmentFailed",
	Rejected:          "Rejected",
}

// Validated job goes to Running directly on the allocated node,
// where submission happened in another process.
var transitions = map[State][]State{
	Created:   {Validated},
	Validated: {Submitted, Rejected, Running},
	Submitted: {Running},
	Running:   {Completed, EnvironmentFailed},
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "Unknown"
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Completed || s == EnvironmentFailed || s == Rejected
}

// CanTransition reports whether a job may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Tracker follows a job through its lifecycle.
// Tracker is not safe for concurrent use.
type Tracker struct {
	state    State
	exitCode int
	history  []State
}

// NewTracker returns a tracker of a freshly created job.
func NewTracker() *Tracker {
	return &Tracker{state: Created, history: []State{Created}}
}

// State returns current state.
func (t *Tracker) State() State {
	return t.state
}

// History returns all states the job went through, in order.
func (t *Tracker) History() []State {
	return append([]State(nil), t.history...)
}

// ExitCode returns the command exit code of a Completed job.
func (t *Tracker) ExitCode() int {
	return t.exitCode
}

// To moves the job to the next state.
func (t *Tracker) To(next State) error {
	if !t.state.CanTransition(next) {
		return errors.Wrapf(ErrIllegalTransition, "%s -> %s", t.state, next)
	}
	t.state = next
	t.history = append(t.history, next)
	return nil
}

// Complete moves the job to Completed recording the command exit code.
func (t *Tracker) Complete(exitCode int) error {
	if err := t.To(Completed); err != nil {
		return err
	}
	t.exitCode = exitCode
	return nil
}
