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

package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	c := newCLI()
	err := c.rootCmd.Execute()
	c.close()
	if err == nil {
		return
	}

	if e, ok := err.(*exitError); ok {
		if e.err != nil {
			log.Error(e.err)
		}
		os.Exit(e.code)
	}
	log.Error(err)
	os.Exit(1)
}

// exitError carries exit code of a job command through cobra,
// along with the reason the command could not be started, if any.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return "command exited with non zero code"
}
