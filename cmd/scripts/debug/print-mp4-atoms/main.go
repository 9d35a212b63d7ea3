package main

import (
	"fmt"
	"os"
	"strings"

	gomp4 "github.com/abema/go-mp4"
	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/mediatag/pkg/mp4"
)

// containers are the boxes the tree printer descends into.
var containers = map[string]bool{
	"moov": true, "trak": true, "mdia": true, "minf": true, "stbl": true,
	"udta": true, "meta": true, "ilst": true, "dinf": true, "edts": true,
}

func main() {
	log := logger.New()

	var opts struct {
		MaxDepth  int  `short:"d" long:"max-depth" default:"0" description:"Stop descending below this depth (0 means no limit)"`
		ItemsOnly bool `short:"i" long:"items-only" description:"Only print the ilst items"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/print-mp4-atoms <path/to/file.m4a>")
		os.Exit(1)
	}
	path := args[0]

	if !opts.ItemsOnly {
		if err := printTree(path, opts.MaxDepth); err != nil {
			log.Err(err).Fatal("box walk error")
		}
		fmt.Println()
	}

	tag, err := mp4.Read(path)
	if err != nil {
		log.Err(err).Fatal("mp4 read error")
	}

	fmt.Printf("Items (%d):\n", len(tag.Items()))
	for _, item := range tag.Items() {
		values := item.Strings()
		if len(values) == 0 {
			size := 0
			for _, d := range item.Data {
				size += len(d.Value)
			}
			fmt.Printf("  %s (%d data boxes, %d bytes)\n", item.Key, len(item.Data), size)
			continue
		}
		for _, v := range values {
			if len(v) > 100 {
				v = v[:100] + "..."
			}
			fmt.Printf("  %s: %s\n", item.Key, v)
		}
	}

	fmt.Printf("\nAudio: %s, %v, %d Hz, %d ch, %d kbps\n",
		tag.Audio.Codec, tag.Audio.Duration, tag.Audio.SampleRate, tag.Audio.Channels, tag.Audio.Bitrate)
}

func printTree(path string, maxDepth int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = gomp4.ReadBoxStructure(f, func(h *gomp4.ReadHandle) (interface{}, error) {
		depth := len(h.Path) - 1
		fmt.Printf("%s%s offset=%d size=%d\n", strings.Repeat("  ", depth), h.BoxInfo.Type, h.BoxInfo.Offset, h.BoxInfo.Size)
		if maxDepth > 0 && depth+1 >= maxDepth {
			return nil, nil
		}
		if containers[h.BoxInfo.Type.String()] {
			return h.Expand()
		}
		return nil, nil
	})
	return err
}
