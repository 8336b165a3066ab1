package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/transportresilience/rdr/internal/app"
	"github.com/transportresilience/rdr/internal/constants"
	"github.com/transportresilience/rdr/internal/controllers/restserver"
	"github.com/transportresilience/rdr/internal/log"
)

func main() {
	storePath := flag.String("store", constants.DefaultStorePath, "Path to the SQLite run store")
	listenAddr := flag.String("listen", "0.0.0.0", "Address to listen on")
	port := flag.Int("port", restserver.DefaultPort, "Port to listen on")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rdr-server %s\n", constants.Version)
		os.Exit(0)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if _, err := os.Stat(*storePath); err != nil {
		log.Errorf("Run store %s is not readable: %v", *storePath, err)
		os.Exit(1)
	}

	if err := app.Serve(context.Background(), *storePath, *listenAddr, *port, log.GetSugaredLogger()); err != nil {
		log.Errorf("Server error: %v", err)
		os.Exit(1)
	}
}
