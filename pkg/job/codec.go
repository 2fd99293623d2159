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
	"bytes"
	"encoding/base64"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Profiles map cluster profile names to environment steps,
// e.g. modules and environments specific to a cluster.
type Profiles map[string][]Step

// Decode reads a YAML spec from r. When the spec references a profile,
// its steps are prepended to the spec environment.
func Decode(r io.Reader, profiles Profiles) (*Spec, error) {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)

	var s Spec
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "could not decode job spec")
	}

	if err := s.expandProfile(profiles); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads a YAML spec from a file.
func LoadFile(path string, profiles Profiles) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open job spec")
	}
	defer f.Close()

	return Decode(f, profiles)
}

// Encode writes s to w in YAML.
func (s *Spec) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(s); err != nil {
		return errors.Wrap(err, "could not encode job spec")
	}
	return errors.Wrap(enc.Close(), "could not encode job spec")
}

// Inline returns s encoded into a single shell safe word
// that DecodeInline accepts.
func (s *Spec) Inline() (string, error) {
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeInline decodes a spec produced by Inline.
func DecodeInline(inline string) (*Spec, error) {
	raw, err := base64.RawURLEncoding.DecodeString(inline)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode inline job spec")
	}
	return Decode(bytes.NewReader(raw), nil)
}

// WithProfile returns a copy of s with steps of the named profile
// prepended to its environment.
func (s *Spec) WithProfile(name string, profiles Profiles) (*Spec, error) {
	c := s.Clone()
	c.Profile = name
	if err := c.expandProfile(profiles); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Spec) expandProfile(profiles Profiles) error {
	if s.Profile == "" {
		return nil
	}

	steps, ok := profiles[s.Profile]
	if !ok {
		return invalid("profile", "unknown profile %q", s.Profile)
	}

	env := make([]Step, 0, len(steps)+len(s.Environment))
	env = append(env, steps...)
	s.Environment = append(env, s.Environment...)
	s.Profile = ""
	return nil
}
