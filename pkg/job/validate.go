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
	"fmt"
	"strings"
	"unicode"
)

// InvalidSpecError is returned when a spec is malformed. It is detected
// before anything is sent to a workload manager and is never retried.
type InvalidSpecError struct {
	Field  string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid job spec: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) *InvalidSpecError {
	return &InvalidSpecError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks spec invariants. Returned error, if any, is *InvalidSpecError.
func (s *Spec) Validate() error {
	r := s.Resources
	if r.Nodes < 1 {
		return invalid("resources.nodes", "must be at least 1, got %d", r.Nodes)
	}
	if r.WallClock <= 0 {
		return invalid("resources.wall_clock", "must be a positive duration, got %s", r.WallClock)
	}
	if r.GPUs < 0 {
		return invalid("resources.gpus", "must not be negative, got %d", r.GPUs)
	}
	if r.GPUType != "" && r.GPUs == 0 {
		return invalid("resources.gpu_type", "requires gpus to be set")
	}
	if r.TasksPerNode < 0 {
		return invalid("resources.tasks_per_node", "must not be negative, got %d", r.TasksPerNode)
	}
	if r.CPUsPerTask < 0 {
		return invalid("resources.cpus_per_task", "must not be negative, got %d", r.CPUsPerTask)
	}

	if err := s.Identity.validate(); err != nil {
		return err
	}

	if s.Profile != "" {
		return invalid("profile", "profile %q is not expanded", s.Profile)
	}

	for i, step := range s.Environment {
		if err := step.Validate(); err != nil {
			return invalid(fmt.Sprintf("environment[%d]", i+1), "%v", err)
		}
	}

	if strings.TrimSpace(s.Command.Executable) == "" {
		return invalid("command.executable", "must not be empty")
	}
	return nil
}

func (id Identity) validate() error {
	if strings.ContainsAny(id.Name, "\n\r") {
		return invalid("identity.name", "must be a single line")
	}
	if strings.IndexFunc(id.MailUser, unicode.IsSpace) != -1 {
		return invalid("identity.mail_user", "must not contain spaces")
	}
	for _, t := range id.MailType {
		switch TriggerFromMailType(string(t)) {
		case TriggerStart, TriggerEnd, TriggerFail, TriggerAll:
		default:
			return invalid("identity.mail_type", "unknown trigger %q", t)
		}
	}
	return nil
}

// Triggers returns deduplicated notification triggers in a stable order.
// ALL absorbs every other trigger.
func (id Identity) Triggers() []Trigger {
	seen := make(map[Trigger]bool)
	for _, t := range id.MailType {
		seen[TriggerFromMailType(string(t))] = true
	}
	if seen[TriggerAll] {
		return []Trigger{TriggerAll}
	}

	var tt []Trigger
	for _, t := range []Trigger{TriggerStart, TriggerEnd, TriggerFail} {
		if seen[t] {
			tt = append(tt, t)
		}
	}
	return tt
}
