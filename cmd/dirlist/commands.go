package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-index-harvester/internal/app"
	"github.com/samvad-hq/samvad-index-harvester/internal/config"
	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
	"github.com/samvad-hq/samvad-index-harvester/internal/logger"
	"github.com/samvad-hq/samvad-index-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-index-harvester/pkg/listing"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// newApp builds the CLI. Listings go to out; usage and errors go to errOut.
func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "dirlist",
		Usage:     "list remote FTP and HTTP directories",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   formatJSON,
				Usage:   "output format (json or yaml)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "per-connection timeout",
			},
		},
		Before: func(c *cli.Context) error {
			switch strings.ToLower(c.String("format")) {
			case formatJSON, formatYAML:
				return nil
			default:
				return fmt.Errorf("unsupported format %q", c.String("format"))
			}
		},
		Commands: []*cli.Command{
			{
				Name:  "ftp",
				Usage: "list an FTP directory with anonymous login",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Required: true, Usage: "server host, optionally with :port"},
					&cli.StringFlag{Name: "dir", Usage: "directory to change into"},
				},
				Action: listFTP,
			},
			{
				Name:  "http",
				Usage: "list an HTTP directory index page",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Required: true, Usage: "index page URL"},
				},
				Action: listHTTP,
			},
			{
				Name:  "sites",
				Usage: "list every site in a sites file once",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "sites file (defaults to sites_file config)"},
				},
				Action: listSites,
			},
		},
	}
}

func listFTP(c *cli.Context) error {
	lister := listing.NewFTPLister(c.Duration("timeout"), nil)
	host, dir := c.String("host"), c.String("dir")
	entries, err := lister.ListDir(c.Context, "", host, dir)
	if err != nil {
		return err
	}
	return render(c, domain.NewListing(entries))
}

func listHTTP(c *cli.Context) error {
	lister := listing.NewHTTPLister(httpclient.NewRestyClient(c.Duration("timeout")))
	entries, err := lister.ListPage(c.Context, "", c.String("url"), nil)
	if err != nil {
		return err
	}
	return render(c, domain.NewListing(entries))
}

func listSites(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if file := c.String("file"); file != "" {
		cfg.SitesFile = file
	}
	log, err := logger.InitTo(cfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	collector, err := app.NewCollectorFromConfig(cfg, log)
	if err != nil {
		return err
	}
	listings, collectErr := collector.Collect(c.Context)
	if err := render(c, listings); err != nil {
		return err
	}
	return collectErr
}

func render(c *cli.Context, v any) error {
	w := c.App.Writer
	if strings.ToLower(c.String("format")) == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
