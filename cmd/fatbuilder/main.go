// Command fatbuilder builds a bootable FAT12/16/32 disk image from a
// manifest file (§10).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dargueta/fatbuilder/clock"
	"github.com/dargueta/fatbuilder/imagebuilder"
	"github.com/dargueta/fatbuilder/presets"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	app := &cli.App{
		Name:  "fatbuilder",
		Usage: "build a bootable FAT12/16/32 disk image from a manifest",
		Commands: []*cli.Command{
			buildCommand(logger),
			formatCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("build failed", "error", err.Error())
		os.Exit(1)
	}
}

func buildCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "compile a manifest into a FAT disk image",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Required: true, Usage: "path to the manifest file"},
			&cli.StringFlag{Name: "output", Required: true, Usage: "path to the image file to create"},
			&cli.StringFlag{Name: "mbr-code", Usage: "path to a 446-byte MBR boot code blob"},
			&cli.StringFlag{Name: "pbr-code-1216", Usage: "path to a 512-byte FAT12/16 PBR boot code blob"},
			&cli.StringFlag{Name: "pbr-code-32", Usage: "path to a 512- or 1536-byte FAT32 PBR boot code blob"},
			&cli.Uint64Flag{Name: "cluster-size", Value: 32768, Usage: "bytes per cluster"},
			&cli.Uint64Flag{Name: "free-space", Value: 1024 * 1024, Usage: "bytes of free space to reserve"},
			&cli.StringFlag{Name: "media-preset", Usage: fmt.Sprintf("named default geometry (%v)", presets.Slugs())},
			&cli.StringFlag{Name: "timestamp", Usage: "RFC3339 build timestamp for reproducible builds"},
		},
		Action: func(c *cli.Context) error {
			return runBuild(c, logger)
		},
	}
}

// formatCommand is retained as a bare stub matching the historical
// "format" entry point; it builds nothing and only prints the "build"
// command's help, since this module no longer supports multiple on-disk
// formats to choose between.
func formatCommand() *cli.Command {
	return &cli.Command{
		Name:   "format",
		Hidden: true,
		Usage:  "show help for build",
		Action: func(c *cli.Context) error {
			return cli.ShowCommandHelp(c, "build")
		},
	}
}

func runBuild(c *cli.Context, logger *slog.Logger) error {
	opts := imagebuilder.Options{
		ManifestPath: c.String("input"),
		OutputPath:   c.String("output"),
		ClusterSize:  c.Uint64("cluster-size"),
		FreeSpace:    c.Uint64("free-space"),
	}

	if slug := c.String("media-preset"); slug != "" {
		preset, err := presets.Get(slug)
		if err != nil {
			return err
		}
		if !c.IsSet("cluster-size") {
			opts.ClusterSize = preset.ClusterSizeBytes
		}
		if !c.IsSet("free-space") {
			opts.FreeSpace = preset.FreeSpaceBytes
		}
	}

	var err error
	if opts.MBRCode, err = readOptionalBlob(c.String("mbr-code")); err != nil {
		return err
	}
	if opts.PBR1216Code, err = readOptionalBlob(c.String("pbr-code-1216")); err != nil {
		return err
	}
	if opts.PBR32Code, err = readOptionalBlob(c.String("pbr-code-32")); err != nil {
		return err
	}

	opts.Clock, err = resolveClock(c.String("timestamp"))
	if err != nil {
		return err
	}

	result, err := imagebuilder.Build(opts)
	if err != nil {
		return err
	}

	logger.Info("build succeeded",
		"image_size", humanize.Bytes(uint64(result.ImageSizeBytes)),
		"variant", result.Variant,
		"files", result.FileCount,
		"dirs", result.DirCount,
	)
	return nil
}

func readOptionalBlob(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

// resolveClock honors --timestamp, then FATBUILDER_TIMESTAMP, then falls
// back to the wall clock, per §6's environment variable and §12.5's Clock
// injection point.
func resolveClock(flagValue string) (clock.Clock, error) {
	raw := flagValue
	if raw == "" {
		raw = os.Getenv("FATBUILDER_TIMESTAMP")
	}
	if raw == "" {
		return clock.Real(), nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return clock.Fixed(t), nil
}
