package candidate

import (
	"bytes"
	"image/png"
	"regexp"
	"strings"
	"testing"
)

func TestNewQRPayloadFormat(t *testing.T) {
	re := regexp.MustCompile(`^HACKATHON_17_[0-9a-f]{12}$`)
	a, b := NewQRPayload(17), NewQRPayload(17)
	if !re.MatchString(a) {
		t.Fatalf("payload %q does not match format", a)
	}
	if a == b {
		t.Error("payloads for the same id should differ")
	}
}

func TestRenderQRProducesPNG(t *testing.T) {
	data, err := RenderQR("HACKATHON_1_abcdef012345", QRImageSize)
	if err != nil {
		t.Fatalf("RenderQR: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != QRImageSize {
		t.Errorf("width = %d, want %d", img.Bounds().Dx(), QRImageSize)
	}
	if _, err := RenderQR("", 100); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestPNGDataURL(t *testing.T) {
	if got := PNGDataURL([]byte{1, 2, 3}); !strings.HasPrefix(got, "data:image/png;base64,") || !strings.HasSuffix(got, "AQID") {
		t.Errorf("unexpected data url %q", got)
	}
}
