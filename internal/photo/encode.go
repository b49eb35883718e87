package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// UploadQuality bounds upload size; captures are always recompressed.
const UploadQuality = 30

const (
	uploadMediaType = "image/jpeg"
	uploadFilename  = "image.jpg"
)

var ErrNotImage = errors.New("photo: input is not a supported image")

var supportedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

type Payload struct {
	Data      []byte
	MediaType string
	Filename  string
}

type Encoder struct {
	Quality int
	// MaxDim of 0 keeps the captured resolution.
	MaxDim int
}

func NewEncoder() *Encoder {
	return &Encoder{Quality: UploadQuality}
}

func (e *Encoder) Encode(raw []byte) (Payload, error) {
	img, err := Decode(raw)
	if err != nil {
		return Payload{}, err
	}
	if e.MaxDim > 0 {
		b := img.Bounds()
		if b.Dx() > e.MaxDim || b.Dy() > e.MaxDim {
			img = imaging.Fit(img, e.MaxDim, e.MaxDim, imaging.Lanczos)
		}
	}
	quality := e.Quality
	if quality <= 0 || quality > 100 {
		quality = UploadQuality
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return Payload{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Payload{Data: buf.Bytes(), MediaType: uploadMediaType, Filename: uploadFilename}, nil
}

// Decode sniffs the content before decoding and applies EXIF orientation.
func Decode(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, ErrNotImage
	}
	mt := mimetype.Detect(raw)
	if !mimetype.EqualsAny(mt.String(), supportedTypes...) {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", mt.String(), err)
	}
	return img, nil
}

// CropSquare keeps the centred square of the image.
func CropSquare(img image.Image) image.Image {
	b := img.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	return imaging.CropCenter(img, side, side)
}
