package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/decodebridge/pkg/adapters/codecdetect"
	"github.com/user/decodebridge/pkg/adapters/ivfsource"
	"github.com/user/decodebridge/pkg/adapters/libde265"
	"github.com/user/decodebridge/pkg/adapters/libvpx"
	"github.com/user/decodebridge/pkg/adapters/mp4source"
	"github.com/user/decodebridge/pkg/adapters/osfilesystem"
	"github.com/user/decodebridge/pkg/pipeline"
	"github.com/user/decodebridge/pkg/ports"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     l10n.T("Show engine availability and describe an MP4 or IVF input"),
		ArgsUsage: "[file.mp4|file.ivf]",
		Action:    runInfo,
	}
}

func runInfo(c *cli.Context) error {
	if libde265.Available() {
		fmt.Println(l10n.F("libde265: version %s", libde265.Version()))
	} else {
		fmt.Println(l10n.F("libde265: not available (set %s)", libde265.LibPathEnv))
	}
	if libvpx.Available() {
		fmt.Println(l10n.F("libvpx: version %s", libvpx.Version()))
	} else {
		fmt.Println(l10n.F("libvpx: not available (set %s)", libvpx.LibPathEnv))
	}
	fmt.Println(l10n.T("soft: always available"))

	if !c.Args().Present() {
		return nil
	}
	path := c.Args().First()
	fs := osfilesystem.New()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v", ".mov":
		return describeMP4(fs, path)
	case ".ivf":
		return describeIVF(fs, path)
	default:
		return fmt.Errorf("info only reads MP4 or IVF files, got %s", path)
	}
}

func describeIVF(fs ports.FileSystem, path string) error {
	src, err := ivfsource.Open(fs, path)
	if err != nil {
		return err
	}
	defer src.Close()

	h := src.Header()
	fmt.Println(l10n.F("Codec: %s", h.FourCC))
	fmt.Println(l10n.F("Size: %dx%d", h.Width, h.Height))
	fmt.Println(l10n.F("Frames: %d", src.Frames()))
	printRate(src.FrameRate())
	return nil
}

func describeMP4(fs ports.FileSystem, path string) error {
	codec, err := codecdetect.DetectFromFile(fs, path)
	if err != nil {
		return err
	}
	fmt.Println(l10n.F("Codec: %s", string(codec)))
	if !codec.Decodable() {
		fmt.Println(l10n.T("This codec cannot be decoded"))
		return nil
	}

	src, err := mp4source.Open(fs, path)
	if err != nil {
		return err
	}
	defer src.Close()
	fmt.Println(l10n.F("Samples: %d", src.Samples()))
	printRate(src.FrameRate())
	return nil
}

func printRate(rate pipeline.Fraction) {
	if rate.IsSet() {
		fmt.Println(l10n.F("Frame rate: %s (%.2f fps)", rate.String(), rate.Float()))
	}
}
