package candidate

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

// QRImageSize is the edge length, in pixels, of rendered QR codes.
const QRImageSize = 300

// NewQRPayload builds the string encoded in a candidate's QR code. The random
// suffix keeps payloads unguessable from the id alone.
func NewQRPayload(id int64) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("HACKATHON_%d_%s", id, nonce)
}

// RenderQR encodes payload as a black-on-white PNG.
func RenderQR(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty qr payload")
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}

// PNGDataURL wraps PNG bytes as a data URL suitable for an <img> src.
func PNGDataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
