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
	"regexp"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// StepKind defines how a step value is turned into a shell action.
type StepKind string

// Supported step kinds.
const (
	StepModule StepKind = "module"
	StepConda  StepKind = "conda"
	StepVenv   StepKind = "venv"
	StepSource StepKind = "source"
	StepExport StepKind = "export"
	StepShell  StepKind = "shell"
)

const (
	condaPrefix = "env:"
	venvPrefix  = "venv:"
)

var (
	envNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	dquoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`")
)

// Step is a single environment setup action applied on the allocated
// node before the command runs. Steps are expected to be idempotent.
type Step struct {
	Kind  StepKind
	Value string
}

// ParseStep parses text form of a step. Recognized forms are
//
//	load <module>             module load <module>
//	module load <module>
//	activate env:<name>       conda environment
//	activate venv:<path>      python virtual environment
//	activate <name>           conda environment
//	source <path>
//	export KEY=VALUE
//
// Anything else is a verbatim shell snippet.
func ParseStep(s string) Step {
	s = strings.TrimSpace(s)
	verb, rest := splitWord(s)

	switch verb {
	case "load":
		return Step{Kind: StepModule, Value: rest}
	case "module":
		if sub, mod := splitWord(rest); sub == "load" && mod != "" {
			return Step{Kind: StepModule, Value: mod}
		}
	case "activate":
		switch {
		case strings.HasPrefix(rest, condaPrefix):
			return Step{Kind: StepConda, Value: strings.TrimPrefix(rest, condaPrefix)}
		case strings.HasPrefix(rest, venvPrefix):
			return Step{Kind: StepVenv, Value: strings.TrimPrefix(rest, venvPrefix)}
		case rest != "":
			return Step{Kind: StepConda, Value: rest}
		}
	case "source", ".":
		if rest != "" {
			return Step{Kind: StepSource, Value: rest}
		}
	case "export":
		if strings.Contains(rest, "=") {
			return Step{Kind: StepExport, Value: rest}
		}
	}
	return Step{Kind: StepShell, Value: s}
}

// String returns text form of the step that ParseStep accepts.
func (s Step) String() string {
	switch s.Kind {
	case StepModule:
		return "load " + s.Value
	case StepConda:
		return "activate " + condaPrefix + s.Value
	case StepVenv:
		return "activate " + venvPrefix + s.Value
	case StepSource:
		return "source " + s.Value
	case StepExport:
		return "export " + s.Value
	}
	return s.Value
}

// Validate checks that step can be rendered into a shell action.
func (s Step) Validate() error {
	if strings.TrimSpace(s.Value) == "" {
		return errors.Errorf("%s step must have a value", s.Kind)
	}

	switch s.Kind {
	case StepModule, StepConda, StepVenv, StepSource, StepShell:
	case StepExport:
		i := strings.IndexByte(s.Value, '=')
		if i == -1 {
			return errors.Errorf("export %q must be in KEY=VALUE form", s.Value)
		}
		if !envNameRe.MatchString(s.Value[:i]) {
			return errors.Errorf("invalid variable name %q", s.Value[:i])
		}
	default:
		return errors.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// Script renders the step into a POSIX shell snippet.
func (s Step) Script() string {
	switch s.Kind {
	case StepModule:
		return "module load " + shellquote.Join(strings.Fields(s.Value)...)
	case StepConda:
		return fmt.Sprintf("eval \"$(conda shell.posix hook)\"\nconda activate %s", shellquote.Join(s.Value))
	case StepVenv:
		return ". " + shellquote.Join(strings.TrimSuffix(s.Value, "/")+"/bin/activate")
	case StepSource:
		return ". " + shellquote.Join(s.Value)
	case StepExport:
		i := strings.IndexByte(s.Value, '=')
		return "export " + s.Value[:i] + "=" + doubleQuote(s.Value[i+1:])
	}
	return s.Value
}

// UnmarshalYAML accepts either text form of a step or a single entry
// mapping of kind to value, e.g. {module: cuda/10.2}.
func (s *Step) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var text string
	if err := unmarshal(&text); err == nil {
		*s = ParseStep(text)
		return nil
	}

	var m map[string]string
	if err := unmarshal(&m); err != nil {
		return errors.New("step must be a string or a single entry mapping")
	}
	if len(m) != 1 {
		return errors.Errorf("step mapping must have exactly one entry, got %d", len(m))
	}
	for k, v := range m {
		*s = Step{Kind: StepKind(k), Value: v}
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Step) MarshalYAML() (interface{}, error) {
	if ParseStep(s.String()) == s {
		return s.String(), nil
	}
	return map[string]string{string(s.Kind): s.Value}, nil
}

// doubleQuote keeps parameter expansion, e.g. export PATH=$HOME/bin:$PATH.
func doubleQuote(s string) string {
	return `"` + dquoteEscaper.Replace(s) + `"`
}

func splitWord(s string) (string, string) {
	i := strings.IndexAny(s, " \t")
	if i == -1 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
