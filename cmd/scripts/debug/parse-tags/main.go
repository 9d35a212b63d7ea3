package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/mediatag/pkg/taglib"
)

func main() {
	log := logger.New()

	var opts struct {
		CoverOutput string `short:"o" long:"cover-output" description:"A path to output the cover image"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/parse-tags <path/to/file>")
		os.Exit(1)
	}

	f, err := taglib.Open(args[0])
	if err != nil {
		log.Err(err).Fatal("open error")
	}
	defer f.Close()

	audio := f.AudioProperties()
	fmt.Printf("Format: %s\nCodec: %s\nLength: %v\nSample Rate: %d\nChannels: %d\nBitrate: %d kbps\n",
		f.Format(), audio.Codec, audio.Length, audio.SampleRate, audio.Channels, audio.Bitrate)

	props := f.Properties()
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("\nProperties (%d):\n", len(keys))
	for _, k := range keys {
		fmt.Printf("  %s: %q\n", k, props[k])
	}

	picture, err := f.Picture()
	if err != nil {
		fmt.Println("\nHas Cover Data: false")
		return
	}
	fmt.Printf("\nHas Cover Data: true\nCover Mime Type: %s\nCover Type: %s\nCover Size: %d bytes\n",
		picture.MIMEType, picture.PictureType, picture.Size())
	if opts.CoverOutput != "" {
		if err := os.WriteFile(opts.CoverOutput, picture.Data, 0644); err != nil { //nolint:gosec
			log.Err(err).Fatal("file write error")
		}
	}
}
