package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"unsermarkt/internal/engine"
	"unsermarkt/internal/net"
)

func main() {
	address := flag.String("address", "0.0.0.0", "Listen address")
	port := flag.Int("port", 9001, "Listen port")
	security := flag.Uint("security", 1, "Traded instrument id")
	funding := flag.Uint("funding", 2, "Funding instrument id")
	capacity := flag.Int("capacity", 0, "Arena capacity (0 = default)")
	pretty := flag.Bool("pretty", false, "Human-readable log output")
	flag.Parse()

	if *pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the order book and the TCP server owning it.
	var opts []engine.Option
	if *capacity > 0 {
		opts = append(opts, engine.WithArenaCapacity(*capacity))
	}
	book := engine.New(uint32(*security), uint32(*funding), opts...)
	srv := net.New(*address, *port, book)

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}
