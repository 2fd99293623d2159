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

package tail

import (
	"bytes"
	"io"
	"sync"

	"github.com/hpcloud/tail"
	log "github.com/sirupsen/logrus"
)

type tailReader struct {
	t *tail.Tail

	mu       sync.Mutex
	ready    *sync.Cond
	buff     *bytes.Buffer
	isClosed bool
	done     chan struct{}
}

// NewReader starts following a file at path. Returned reader
// never reports EOF until Close is called and all
// collected lines are read out.
func NewReader(path string) (io.ReadCloser, error) {
	t, err := tail.TailFile(path, tail.Config{Follow: true, ReOpen: true, MustExist: false, Logger: tail.DiscardingLogger})
	if err != nil {
		return nil, err
	}

	tr := &tailReader{
		t:    t,
		buff: &bytes.Buffer{},
		done: make(chan struct{}),
	}
	tr.ready = sync.NewCond(&tr.mu)

	go tr.readTail()

	return tr, nil
}

// Read blocks until a line is collected and returns EOF error
// only after invoking Close.
func (tr *tailReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	for tr.buff.Len() == 0 && !tr.isClosed {
		tr.ready.Wait()
	}
	return tr.buff.Read(p)
}

// Close stops following the file once its current end is reached.
func (tr *tailReader) Close() error {
	_ = tr.t.StopAtEOF() // it returns stop reason instead of err
	<-tr.done
	return nil
}

func (tr *tailReader) readTail() {
	defer func() {
		tr.mu.Lock()
		tr.isClosed = true
		tr.ready.Broadcast()
		tr.mu.Unlock()
		close(tr.done)
		log.Debug("Read tail finished")
	}()

	for l := range tr.t.Lines {
		if l.Err != nil {
			log.Errorf("Tail line err: %s", l.Err)
			return
		}

		tr.mu.Lock()
		tr.buff.WriteString(l.Text + "\n")
		tr.ready.Broadcast()
		tr.mu.Unlock()
	}
}
