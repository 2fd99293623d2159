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
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	"github.com/sylabs/slurm-launcher/pkg/slurm"
)

var (
	gresGPURe = regexp.MustCompile(`^gpu(?::([^:,]+))?:([0-9]+)$`)
	gpusRe    = regexp.MustCompile(`^(?:([^:,]+):)?([0-9]+)$`)
)

// FromScript builds a spec from an existing batch script. Recognized #SBATCH
// directives become resources and identity, module loads and environment
// activations of the script body become environment steps, other lines
// become shell steps and the last line becomes the command.
// Names of directives that have no spec counterpart are returned.
func FromScript(script string) (*Spec, []string, error) {
	d, err := slurm.ParseScript(script)
	if err != nil {
		return nil, nil, err
	}
	return FromDirectives(d)
}

// FromDirectives is FromScript for already parsed directives.
func FromDirectives(d slurm.Directives) (*Spec, []string, error) {
	var (
		s       Spec
		ignored []string
		gpus    int
		err     error
	)
	for _, name := range d.Names() {
		v := d[name]
		switch name {
		case "nodes":
			// min nodes of a min-max range
			if i := strings.IndexByte(v, '-'); i != -1 {
				v = v[:i]
			}
			s.Resources.Nodes, err = strconv.Atoi(v)
		case "time":
			var wall *time.Duration
			wall, err = slurm.ParseDuration(v)
			if err == nil {
				s.Resources.WallClock = *wall
			}
		case "partition":
			s.Resources.Partition = v
		case "gres":
			m := gresGPURe.FindStringSubmatch(v)
			if m == nil {
				ignored = append(ignored, name)
				continue
			}
			s.Resources.GPUType = m[1]
			s.Resources.GPUs, err = strconv.Atoi(m[2])
		case "gpus", "gpus-per-node":
			m := gpusRe.FindStringSubmatch(v)
			if m == nil {
				err = errors.Errorf("unsupported value %q", v)
				break
			}
			s.Resources.GPUType = m[1]
			if name == "gpus" {
				// job wide, spread over nodes below
				gpus, err = strconv.Atoi(m[2])
				break
			}
			s.Resources.GPUs, err = strconv.Atoi(m[2])
		case "ntasks-per-node":
			s.Resources.TasksPerNode, err = strconv.Atoi(v)
		case "cpus-per-task":
			s.Resources.CPUsPerTask, err = strconv.Atoi(v)
		case "mem":
			s.Resources.Memory = v
		case "account":
			s.Resources.Account = v
		case "qos":
			s.Resources.QOS = v
		case "job-name":
			s.Identity.Name = v
		case "mail-user":
			s.Identity.MailUser = v
		case "mail-type":
			for _, t := range strings.Split(v, ",") {
				s.Identity.MailType = append(s.Identity.MailType, TriggerFromMailType(t))
			}
		case "output":
			s.Output = v
		case "error":
			s.Error = v
		case "chdir":
			s.WorkDir = v
		default:
			ignored = append(ignored, name)
		}
		if err != nil {
			return nil, nil, invalid("--"+name, "%v", err)
		}
	}

	if gpus > 0 && s.Resources.GPUs == 0 {
		nodes := s.Resources.Nodes
		if nodes < 1 {
			nodes = 1
		}
		if gpus%nodes != 0 {
			return nil, nil, invalid("--gpus", "%d gpus can't be spread evenly over %d nodes", gpus, nodes)
		}
		s.Resources.GPUs = gpus / nodes
	}

	if err := s.setBody(d[slurm.WrapDirective]); err != nil {
		return nil, nil, err
	}
	sort.Strings(ignored)
	return &s, ignored, nil
}

func (s *Spec) setBody(body string) error {
	var lines []string
	for _, l := range strings.Split(body, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return invalid("command", "batch script has no commands")
	}

	for _, l := range lines[:len(lines)-1] {
		s.Environment = append(s.Environment, scriptStep(l))
	}

	argv, err := shellquote.Split(lines[len(lines)-1])
	if err != nil {
		return invalid("command", "%v", err)
	}
	if len(argv) == 0 {
		return invalid("command", "batch script has no commands")
	}
	s.Command = Command{Executable: argv[0]}
	if len(argv) > 1 {
		s.Command.Args = argv[1:]
	}
	return nil
}

// scriptStep recognizes environment activations written the way
// batch scripts usually do.
func scriptStep(line string) Step {
	verb, rest := splitWord(line)
	switch verb {
	case "conda", "source":
		if sub, env := splitWord(rest); sub == "activate" && env != "" {
			return Step{Kind: StepConda, Value: env}
		}
	}

	st := ParseStep(line)
	if st.Kind == StepSource && strings.HasSuffix(st.Value, "/bin/activate") {
		return Step{Kind: StepVenv, Value: strings.TrimSuffix(st.Value, "/bin/activate")}
	}
	return st
}
