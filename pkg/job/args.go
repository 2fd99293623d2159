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
	"strconv"
	"strings"
)

// Positional is implemented by typed argument records of programs
// that take order dependent positional arguments.
type Positional interface {
	// Positional returns arguments in the order the program expects them.
	Positional() []string
}

// TrainingSplits are dataset splits the training script accepts.
var TrainingSplits = []string{
	"cv",
	"cv_full",
	"train_full",
	"coach420",
	"coach420_mlig",
	"holo4k",
	"holo4k_mlig",
	"chen",
}

// TrainingModels are GNN architectures the training script accepts.
var TrainingModels = []string{"gat", "gatv2"}

// TrainArgs are arguments of the training script: node noise standard
// deviation, training split and number of cpu workers. Model and Epochs
// are left to the script defaults when zero.
type TrainArgs struct {
	NodeNoiseStd  float64
	TrainingSplit string
	Tasks         int

	Model  string
	Epochs int
}

// Validate checks arguments against what the training script accepts.
func (a TrainArgs) Validate() error {
	if a.NodeNoiseStd < 0 {
		return invalid("args.node_noise_std", "must not be negative, got %g", a.NodeNoiseStd)
	}
	if !oneOf(a.TrainingSplit, TrainingSplits) {
		return invalid("args.training_split", "%q is not one of %s", a.TrainingSplit, strings.Join(TrainingSplits, ", "))
	}
	if a.Tasks < 1 {
		return invalid("args.n_tasks", "must be at least 1, got %d", a.Tasks)
	}
	if a.Model != "" && !oneOf(a.Model, TrainingModels) {
		return invalid("args.model", "%q is not one of %s", a.Model, strings.Join(TrainingModels, ", "))
	}
	if a.Epochs < 0 {
		return invalid("args.num_epochs", "must not be negative, got %d", a.Epochs)
	}
	return nil
}

// Positional implements Positional for wrappers taking
// <noise> <split> <tasks>.
func (a TrainArgs) Positional() []string {
	return []string{
		strconv.FormatFloat(a.NodeNoiseStd, 'f', -1, 64),
		a.TrainingSplit,
		strconv.Itoa(a.Tasks),
	}
}

// Flags returns arguments in the option form train.py parses itself.
func (a TrainArgs) Flags() []string {
	flags := []string{
		"-nn", strconv.FormatFloat(a.NodeNoiseStd, 'f', -1, 64),
		"-s", a.TrainingSplit,
		"-n", strconv.Itoa(a.Tasks),
	}
	if a.Model != "" {
		flags = append(flags, "-m", a.Model)
	}
	if a.Epochs > 0 {
		flags = append(flags, "-e", strconv.Itoa(a.Epochs))
	}
	return flags
}

// NewCommand returns a command running executable with leading arguments
// (e.g. a script path) followed by positional arguments.
func NewCommand(executable string, leading []string, args Positional) Command {
	cmd := Command{Executable: executable}
	cmd.Args = append(cmd.Args, leading...)
	if args != nil {
		cmd.Args = append(cmd.Args, args.Positional()...)
	}
	return cmd
}

func oneOf(s string, choices []string) bool {
	for _, c := range choices {
		if s == c {
			return true
		}
	}
	return false
}
