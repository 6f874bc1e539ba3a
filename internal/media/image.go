package media

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	_ "golang.org/x/image/webp"
)

// Photo bounds applied on upload.
const (
	MaxPhotoEdge = 800
	JPEGQuality  = 85
)

// Decode reads any supported image format, honouring EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// NormalizePhoto decodes an uploaded image (jpeg, png, gif, bmp, tiff or webp),
// shrinks it to fit MaxPhotoEdge and re-encodes it as JPEG.
func NormalizePhoto(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() > MaxPhotoEdge || b.Dy() > MaxPhotoEdge {
		img = imaging.Fit(img, MaxPhotoEdge, MaxPhotoEdge, imaging.Lanczos)
	}
	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

// Thumbnail crops the image to a square of the given edge and encodes it as JPEG.
func Thumbnail(data []byte, edge int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	thumb := imaging.Fill(img, edge, edge, imaging.Center, imaging.Lanczos)
	var out bytes.Buffer
	if err := imaging.Encode(&out, thumb, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return out.Bytes(), nil
}

// UniqueName turns an upload filename into a collision-free stored name with ext.
func UniqueName(filename, ext string) string {
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
}
