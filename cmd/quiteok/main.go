package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/quiteok"
	"github.com/urfave/cli/v2"
)

const defaultDB = "quiteok.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func pngName(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + ".png"
}

func main() {
	app := cli.NewApp()

	app.Name = "quiteok"
	app.Usage = "QOI image decoding utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"QUITEOK_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to catalog database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "info",
			Usage:       "Print image dimensions, channels and colorspace",
			Description: "",
			ArgsUsage:   "FILE...",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				for _, file := range c.Args().Slice() {
					header, err := quiteok.Info(file)
					if err != nil {
						return cli.Exit(err, 1)
					}
					fmt.Printf("%s: %dx%d, %s, %s\n", file, header.Width, header.Height, header.Channels, header.Colorspace)
				}

				return nil
			},
		},
		{
			Name:        "convert",
			Usage:       "Decode a QOI image to PNG",
			Description: "",
			ArgsUsage:   "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "output filename",
				},
				&cli.IntFlag{
					Name:    "colors",
					Aliases: []string{"c"},
					Usage:   "quantize down to at most this many colors",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				in := c.Args().First()
				out := c.String("output")
				if out == "" {
					out = pngName(in)
				}

				if err := quiteok.Convert(in, out, c.Int("colors")); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "scan",
			Usage:       "Scan filesystem and catalog QOI images",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				logger := log.New(io.Discard, "", 0)
				if c.Bool("verbose") {
					logger.SetOutput(os.Stderr)
				}

				l, err := quiteok.New(c.String("db"), logger)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer l.Close()

				if err := l.Scan(c.Args().First()); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "export",
			Usage:       "Write a cataloged image back out as PNG",
			Description: "",
			ArgsUsage:   "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "output filename",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				logger := log.New(io.Discard, "", 0)
				if c.Bool("verbose") {
					logger.SetOutput(os.Stderr)
				}

				l, err := quiteok.New(c.String("db"), logger)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer l.Close()

				in, err := filepath.Abs(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}

				out := c.String("output")
				if out == "" {
					out = pngName(in)
				}

				if err := l.Export(in, out); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
