package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/woozymasta/discardpile/internal/config"
	"github.com/woozymasta/discardpile/internal/localities"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Output  string   `short:"o" long:"out"    description:"Output file path. Writes to stdout if empty"`
	Format  string   `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Limit   []string `short:"u" long:"uf"     description:"Limit export to specific regions (e.g. SP)"`
	URL     string   `long:"url"              description:"Localities API base URL"`
	Timeout int      `short:"t" long:"timeout" description:"Request timeout in seconds" default:"15"`
}

// Region is one exported region with its cities.
type Region struct {
	UF     string   `json:"uf"     yaml:"uf"`
	Cities []string `json:"cities" yaml:"cities"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.URL == "" {
		opts.URL = config.DefaultLocalitiesURL
	}

	client := localities.New(opts.URL, &http.Client{Timeout: time.Duration(opts.Timeout) * time.Second}, 0)
	ctx := context.Background()

	ufs := opts.Limit
	if len(ufs) == 0 {
		var err error
		ufs, err = client.Regions(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching regions: %v\n", err)
			os.Exit(1)
		}
	}

	out := make([]Region, 0, len(ufs))
	count := 0
	for _, uf := range ufs {
		uf = strings.ToUpper(strings.TrimSpace(uf))
		cities, err := client.Cities(ctx, uf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", uf, err)
			continue
		}
		out = append(out, Region{UF: uf, Cities: cities})
		count += len(cities)
	}

	// marshal
	var outputData []byte
	var err error
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(out)
	} else {
		outputData, err = json.MarshalIndent(out, "", "  ")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully exported %d cities of %d regions to %s (format: %s)\n", count, len(out), opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}
