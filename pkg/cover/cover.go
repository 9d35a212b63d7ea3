// Package cover loads cover art from disk and prepares it for embedding.
package cover

import (
	"bytes"
	"image"
	_ "image/gif" // register the GIF decoder
	"image/jpeg"
	"image/png"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/shishobooks/mediatag/pkg/taglib"
	_ "golang.org/x/image/bmp" // register the BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register the WebP decoder
)

// ErrNotImage is returned when the file is not an image.
var ErrNotImage = errors.New("not an image")

const jpegQuality = 90

// Image is cover art ready to be embedded.
type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	// Resized is true when the image was downscaled and re-encoded.
	Resized bool
	// Converted is true when a GIF, WebP or BMP source was re-encoded as PNG.
	Converted bool
}

// Load reads the image at path. When maxSize is positive and either side is
// larger, the image is scaled down to fit a maxSize square. Images are
// always returned as JPEG or PNG: JPEG stays JPEG, everything else becomes
// PNG.
func Load(path string, maxSize int) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return FromBytes(data, maxSize)
}

// FromBytes is Load for image data already in memory.
func FromBytes(data []byte, maxSize int) (*Image, error) {
	mtype := mimetype.Detect(data)
	if !isImage(mtype) {
		return nil, errors.Wrapf(ErrNotImage, "detected %s", mtype.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// Unknown to the decoders: embed as is
		return &Image{Data: data, MIMEType: mtype.String()}, nil
	}

	img := &Image{Data: data, MIMEType: mtype.String(), Width: cfg.Width, Height: cfg.Height}
	isJPEG := mtype.Is("image/jpeg")
	embeddable := isJPEG || mtype.Is("image/png")
	resize := maxSize > 0 && (cfg.Width > maxSize || cfg.Height > maxSize)
	if embeddable && !resize {
		return img, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var dst image.Image = src
	width, height := cfg.Width, cfg.Height
	if resize {
		width, height = fitDimensions(cfg.Width, cfg.Height, maxSize, maxSize)
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Over, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	mimeType := "image/png"
	if isJPEG {
		mimeType = "image/jpeg"
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	} else {
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Image{
		Data:      buf.Bytes(),
		MIMEType:  mimeType,
		Width:     width,
		Height:    height,
		Resized:   resize,
		Converted: !embeddable,
	}, nil
}

// Picture wraps the image as an embeddable picture.
func (i *Image) Picture(description, pictureType string) *taglib.Picture {
	return &taglib.Picture{
		Data:        i.Data,
		Description: description,
		MIMEType:    i.MIMEType,
		PictureType: taglib.ParsePictureType(pictureType),
	}
}

func isImage(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("image/jpeg") || m.Is("image/png") || m.Is("image/gif") || m.Is("image/webp") || m.Is("image/bmp") {
			return true
		}
	}
	return false
}

// fitDimensions scales srcW x srcH to fit within maxW x maxH, keeping the
// aspect ratio. Sides never drop below one pixel.
func fitDimensions(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH
	}

	ratioW := float64(maxW) / float64(srcW)
	ratioH := float64(maxH) / float64(srcH)

	ratio := ratioW
	if ratioH < ratioW {
		ratio = ratioH
	}

	return max(1, int(float64(srcW)*ratio)), max(1, int(float64(srcH)*ratio))
}
