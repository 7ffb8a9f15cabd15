//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command cqlmitm wires a Proxy in front of a single database node and
// keeps it running until interrupted. It exists to demonstrate the
// construction idiom (proxy.NewConfig -> proxy.New -> Start -> Shutdown);
// a real test harness builds its own *proxy.Proxy in-process instead of
// shelling out to this binary.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nalgeon/cqlmitm/proxy"
)

func main() {
	proxyAddress := flag.String("listen", "127.0.0.1:9042", "address drivers connect to")
	realAddress := flag.String("node", "127.0.0.1:9142", "address of the real database node")
	logLevel := flag.Int("log-level", int(zerolog.InfoLevel), "zerolog level (0=debug .. 5=panic)")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.Level(*logLevel))
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: zerolog.TimeFormatUnix})

	cfg := proxy.NewConfig(proxy.NodeConfig{
		RealAddress:  *realAddress,
		ProxyAddress: *proxyAddress,
	})
	p := proxy.New(cfg)
	if err := p.Start(); err != nil {
		log.Fatal().Err(err).Msg("cqlmitm: failed to start")
	}
	log.Info().Msgf("cqlmitm: fronting %s as %s", *realAddress, *proxyAddress)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("cqlmitm: shutting down")
	p.Shutdown()
}
