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

package slurm

import (
	"bufio"
	"bytes"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

const sbatchHeader = "#SBATCH"

// WrapDirective holds the command that becomes the batch script body,
// same as sbatch --wrap does.
const WrapDirective = "wrap"

var (
	directiveNameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

	batchScriptT = template.Must(template.New("sbatch").Funcs(template.FuncMap{
		"option": option,
	}).Parse(`#!/bin/sh
{{- range .Options}}
#SBATCH {{option .Name .Value}}
{{- end}}

{{.Body}}
`))
)

// Directives are sbatch long options without leading dashes mapped to their values.
// An empty value renders a flag option, e.g. {"exclusive": ""} becomes --exclusive.
type Directives map[string]string

type scriptOption struct {
	Name  string
	Value string
}

// Names returns directive names in a sorted order, excluding the wrap directive.
func (d Directives) Names() []string {
	names := make([]string, 0, len(d))
	for k := range d {
		if k == WrapDirective {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Script renders directives into a batch script that can be
// piped into sbatch. Rendering is deterministic.
func (d Directives) Script() (string, error) {
	body := strings.TrimSpace(d[WrapDirective])
	if body == "" {
		return "", errors.New("batch script body must not be empty")
	}

	names := d.Names()
	opts := make([]scriptOption, len(names))
	for i, n := range names {
		if !directiveNameRe.MatchString(n) {
			return "", errors.Errorf("invalid directive name %q", n)
		}
		if strings.ContainsAny(d[n], "\n\r") {
			return "", errors.Errorf("directive %s must be a single line", n)
		}
		opts[i] = scriptOption{Name: n, Value: d[n]}
	}

	var buf bytes.Buffer
	err := batchScriptT.Execute(&buf, struct {
		Options []scriptOption
		Body    string
	}{Options: opts, Body: body})
	if err != nil {
		return "", errors.Wrap(err, "could not render batch script")
	}
	return buf.String(), nil
}

func option(name, value string) string {
	if value == "" {
		return "--" + name
	}
	if strings.ContainsAny(value, " \t\"") {
		value = `"` + strings.Replace(value, `"`, `\"`, -1) + `"`
	}
	return "--" + name + "=" + value
}

// shortOptions maps sbatch short options to their long names.
var shortOptions = map[string]string{
	"-A": "account",
	"-c": "cpus-per-task",
	"-D": "chdir",
	"-e": "error",
	"-G": "gpus",
	"-J": "job-name",
	"-N": "nodes",
	"-n": "ntasks",
	"-o": "output",
	"-p": "partition",
	"-q": "qos",
	"-t": "time",
}

// ParseScript extracts #SBATCH directives of a batch script. Both '--param=value'
// and '--param value' forms are accepted, short options are translated
// to long ones. Everything after the directives becomes the wrap directive.
func ParseScript(script string) (Directives, error) {
	d := make(Directives)

	var body []string
	inHeader := true
	s := bufio.NewScanner(strings.NewReader(script))
	for s.Scan() {
		line := s.Text()
		if !inHeader {
			body = append(body, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#!") {
			continue
		}
		// #SBATCH headers go first, sbatch stops looking for
		// them at the first command
		if !strings.HasPrefix(trimmed, sbatchHeader) {
			if strings.HasPrefix(trimmed, "#") {
				continue
			}
			inHeader = false
			body = append(body, line)
			continue
		}

		if err := parseHeader(d, strings.TrimPrefix(trimmed, sbatchHeader)); err != nil {
			return nil, errors.Wrapf(err, "invalid directive line %q", trimmed)
		}
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read batch script")
	}

	if b := strings.TrimSpace(strings.Join(body, "\n")); b != "" {
		d[WrapDirective] = b
	}
	return d, nil
}

func parseHeader(d Directives, line string) error {
	// trailing comment
	if i := strings.Index(line, " #"); i != -1 {
		line = line[:i]
	}

	params, err := shellquote.Split(line)
	if err != nil {
		return err
	}

	for j := 0; j < len(params); j++ {
		param := params[j]
		var value string
		i := strings.IndexByte(param, '=')
		if i != -1 {
			value = param[i+1:]
			param = param[:i]
		} else if j < len(params)-1 && !strings.HasPrefix(params[j+1], "-") {
			value = params[j+1]
			j++
		}

		name, ok := shortOptions[param]
		if !ok {
			if !strings.HasPrefix(param, "--") {
				return errors.Errorf("unexpected argument %q", param)
			}
			name = strings.TrimPrefix(param, "--")
		}
		if !directiveNameRe.MatchString(name) {
			return errors.Errorf("invalid directive name %q", name)
		}
		d[name] = value
	}
	return nil
}
