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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	tt := []struct {
		name   string
		path   []State
		expect State
	}{
		{name: "submitted", path: []State{Validated, Submitted}, expect: Submitted},
		{name: "rejected", path: []State{Validated, Rejected}, expect: Rejected},
		{name: "run on node", path: []State{Validated, Running, Completed}, expect: Completed},
		{name: "environment failed", path: []State{Validated, Running, EnvironmentFailed}, expect: EnvironmentFailed},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewTracker()
			for _, s := range tc.path {
				require.NoError(t, tr.To(s))
			}
			require.Equal(t, tc.expect, tr.State())
			require.Equal(t, append([]State{Created}, tc.path...), tr.History())
		})
	}
}

func TestTracker_illegal(t *testing.T) {
	tr := NewTracker()
	err := tr.To(Running)
	require.Error(t, err)
	require.Equal(t, ErrIllegalTransition, errors.Cause(err))
	require.EqualError(t, err, "Created -> Running: illegal state transition")
	require.Equal(t, Created, tr.State())

	require.NoError(t, tr.To(Validated))
	require.NoError(t, tr.To(Rejected))
	for _, s := range []State{Created, Validated, Submitted, Running, Completed, EnvironmentFailed, Rejected} {
		require.Error(t, tr.To(s), "leaving terminal state to %s", s)
	}
}

func TestTracker_Complete(t *testing.T) {
	tr := NewTracker()
	require.Error(t, tr.Complete(0))

	require.NoError(t, tr.To(Validated))
	require.NoError(t, tr.To(Running))
	require.NoError(t, tr.Complete(3))
	require.Equal(t, Completed, tr.State())
	require.Equal(t, 3, tr.ExitCode())
}

func TestState_Terminal(t *testing.T) {
	for s := Created; s <= Rejected; s++ {
		require.Equal(t, len(transitions[s]) == 0, s.Terminal(), s.String())
	}
	require.Equal(t, "Unknown", State(42).String())
}
