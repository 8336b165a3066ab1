package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/transportresilience/rdr/internal/app"
	"github.com/transportresilience/rdr/internal/constants"
	"github.com/transportresilience/rdr/internal/log"
	"github.com/transportresilience/rdr/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to the analysis configuration (YAML)")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	enumerate := flag.Bool("enumerate", false, "Write the scenario space to the output directory and exit")
	importFile := flag.String("import-snapshots", "", "Import a travel metrics CSV into the run store and exit")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rdr %s\n", constants.Version)
		os.Exit(0)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfgData, err := loadConfig(*cfgFile)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	if cfgData.Runtime.LogFile != "" {
		if err := log.InitWithFile(*debug, cfgData.Runtime.LogFile); err != nil {
			log.Errorf("Failed to open log file %s: %v", cfgData.Runtime.LogFile, err)
			os.Exit(1)
		}
	}

	application := app.New(cfgData, log.GetSugaredLogger())
	ctx := context.Background()

	switch {
	case *importFile != "":
		n, err := application.ImportSnapshots(ctx, *importFile)
		if err != nil {
			log.Errorf("Import failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("%d new snapshots imported\n", n)
	case *enumerate:
		path, err := application.Enumerate()
		if err != nil {
			log.Errorf("Enumeration failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("scenario space written to %s\n", path)
	default:
		if err := application.Run(ctx); err != nil {
			log.Errorf("Run failed: %v", err)
			os.Exit(1)
		}
	}
}

func loadConfig(cfgFile string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider = config.NewYAMLProvider(filename)
	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config from %s. Did you pass the -config flag? Run with -h for help: %w", provider.Source(), err)
	}
	return cfgData, nil
}
