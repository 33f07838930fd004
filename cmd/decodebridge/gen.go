package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/decodebridge/pkg/adapters/osfilesystem"
	"github.com/user/decodebridge/pkg/adapters/rtpsource"
	"github.com/user/decodebridge/pkg/adapters/softengine"
	"github.com/user/decodebridge/pkg/config"
	"github.com/user/decodebridge/pkg/ports"
)

func genCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    l10n.T("Output file path (required)"),
			Required: true,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   l10n.T("Output format (annexb, packetized, rtp)"),
			Value:   "annexb",
		},
		&cli.IntFlag{Name: "width", Usage: l10n.T("Picture width"), Value: 320},
		&cli.IntFlag{Name: "height", Usage: l10n.T("Picture height"), Value: 240},
		&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Usage: l10n.T("Number of pictures"), Value: 60},
		&cli.IntFlag{Name: "fps", Usage: l10n.T("Frame rate used for RTP timestamps"), Value: 30},
		&cli.IntFlag{
			Name:  "resize-at",
			Usage: l10n.T("Double the picture size from this picture on (0 = never)"),
		},
		&cli.IntFlag{
			Name:  "warn-every",
			Usage: l10n.T("Insert an engine warning every N pictures (0 = never)"),
		},
		&cli.IntFlag{Name: "mtu", Usage: l10n.T("RTP packet size limit"), Value: rtpsource.DefaultMTU},
	}

	return &cli.Command{
		Name:   "gen",
		Usage:  l10n.T("Write a synthetic stream for the soft engine"),
		Flags:  append(flags, loggingFlags()...),
		Action: runGen,
	}
}

// syntheticWarning is the code of inserted warning units.
const syntheticWarning = 1500

// genOptions describe a synthetic stream.
type genOptions struct {
	width, height int
	frames        int
	resizeAt      int
	warnEvery     int
}

// accessUnits groups the soft bitstream into one unit list per picture.
// Geometry and warning units travel with the picture that follows them.
func accessUnits(opts genOptions) [][][]byte {
	var aus [][][]byte
	for i := 0; i < opts.frames; i++ {
		var au [][]byte
		switch {
		case i == 0:
			au = append(au, softengine.GeometryUnit(opts.width, opts.height))
		case opts.resizeAt > 0 && i == opts.resizeAt:
			au = append(au, softengine.GeometryUnit(opts.width*2, opts.height*2))
		}
		if opts.warnEvery > 0 && i > 0 && i%opts.warnEvery == 0 {
			au = append(au, softengine.WarningUnit(syntheticWarning))
		}
		au = append(au, softengine.PictureUnit(byte(i)))
		aus = append(aus, au)
	}
	return aus
}

func runGen(c *cli.Context) error {
	cfg := config.Defaults()
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	log := newLogger(c, cfg)

	opts := genOptions{
		width:     c.Int("width"),
		height:    c.Int("height"),
		frames:    c.Int("frames"),
		resizeAt:  c.Int("resize-at"),
		warnEvery: c.Int("warn-every"),
	}
	if opts.width <= 0 || opts.height <= 0 || opts.width*2 > softengine.MaxDimension || opts.height*2 > softengine.MaxDimension {
		return fmt.Errorf("picture size %dx%d out of range", opts.width, opts.height)
	}
	if opts.frames <= 0 {
		return errors.New(l10n.T("at least one picture is required"))
	}
	if c.Int("fps") <= 0 || c.Int("mtu") <= 0 || c.Int("mtu") > 0xFFFF {
		return errors.New(l10n.T("fps and mtu must be positive"))
	}

	fs := osfilesystem.New()
	path := c.String("output")
	aus := accessUnits(opts)

	var err error
	switch format := c.String("format"); format {
	case "annexb":
		err = fs.WriteFile(path, softengine.EncodeAnnexB(flatten(aus)...))
	case "packetized":
		err = fs.WriteFile(path, softengine.EncodePacketized(flatten(aus)...))
	case "rtp":
		err = writeRTP(fs, path, aus, uint32(rtpsource.ClockRate/c.Int("fps")), uint16(c.Int("mtu")))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}

	log.Info("Wrote %d pictures to %s", opts.frames, path)
	return nil
}

func flatten(aus [][][]byte) [][]byte {
	var units [][]byte
	for _, au := range aus {
		units = append(units, au...)
	}
	return units
}

func writeRTP(fs ports.FileSystem, path string, aus [][][]byte, duration uint32, mtu uint16) error {
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	w := rtpsource.NewWriter(f, uuid.New().ID(), 96, mtu)
	for i, au := range aus {
		if err := w.WriteAccessUnit(softengine.EncodeAnnexB(au...), duration); err != nil {
			f.Close()
			return fmt.Errorf("write access unit %d: %w", i, err)
		}
	}
	return f.Close()
}
