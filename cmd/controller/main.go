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
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
	"github.com/sylabs/slurm-launcher/internal/config"
	"github.com/sylabs/slurm-launcher/internal/controller/api"
	"github.com/sylabs/slurm-launcher/pkg/slurm/local"
	"golang.org/x/sys/unix"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a launcher config")
	sock := flag.String("socket", "", "unix socket to serve slurm API, overrides config")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Could not load config: %v", err)
		}
	}
	if *sock != "" {
		cfg.Controller.Socket = *sock
	}
	spew.Dump(cfg.Controller)

	slurmClient, err := local.NewClient()
	if err != nil {
		log.Fatalf("Could not create new local slurm client: %v", err)
	}

	// stale socket of a previous run
	if err := os.Remove(cfg.Controller.Socket); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Could not remove old socket: %v", err)
	}
	ln, err := net.Listen("unix", cfg.Controller.Socket)
	if err != nil {
		log.Fatalf("Could not listen unix: %v", err)
	}
	defer ln.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, unix.SIGINT, unix.SIGTERM, unix.SIGQUIT)

	router := api.NewSlurmRouter(slurmClient, cfg.Controller.OpenRoots...)
	srv := http.Server{Handler: router}
	go func() {
		log.Infof("Starting server on %s", ln.Addr())
		err := srv.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("Server stopped with error: %v", err)
		}
	}()

	log.Infof("Shutting down due to %v", <-sig)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Could not shutdown server gracefully: %v", err)
	}
}
