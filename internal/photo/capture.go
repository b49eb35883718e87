package photo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/disintegration/imaging"
)

// Capture yields raw image bytes. ok=false means the user cancelled, which
// is not an error.
type Capture interface {
	Capture(ctx context.Context) (raw []byte, ok bool, err error)
}

type FileCapture struct {
	Path   string
	Square bool
}

func (f FileCapture) Capture(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p := strings.TrimSpace(f.Path)
	if p == "" {
		return nil, false, nil
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, false, fmt.Errorf("read capture: %w", err)
	}
	if !f.Square {
		if _, err := Decode(raw); err != nil {
			return nil, false, err
		}
		return raw, true, nil
	}
	img, err := Decode(raw)
	if err != nil {
		return nil, false, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, CropSquare(img), imaging.PNG); err != nil {
		return nil, false, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), true, nil
}
