package media

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizePhotoShrinksLargeImages(t *testing.T) {
	out, err := NormalizePhoto(pngFixture(t, 1600, 1200))
	if err != nil {
		t.Fatalf("NormalizePhoto: %v", err)
	}
	img, err := Decode(out)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Errorf("got %dx%d, want 800x600", b.Dx(), b.Dy())
	}
}

func TestNormalizePhotoKeepsSmallImages(t *testing.T) {
	out, err := NormalizePhoto(pngFixture(t, 120, 90))
	if err != nil {
		t.Fatalf("NormalizePhoto: %v", err)
	}
	img, _ := Decode(out)
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 90 {
		t.Errorf("got %dx%d, want 120x90", b.Dx(), b.Dy())
	}
}

func TestNormalizePhotoRejectsGarbage(t *testing.T) {
	if _, err := NormalizePhoto([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestThumbnailIsSquare(t *testing.T) {
	out, err := Thumbnail(pngFixture(t, 300, 100), 64)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	img, _ := Decode(out)
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("got %dx%d, want 64x64", b.Dx(), b.Dy())
	}
}

func TestUniqueName(t *testing.T) {
	a := UniqueName("My Selfie.PNG", ".jpg")
	b := UniqueName("My Selfie.PNG", ".jpg")
	if a == b {
		t.Fatal("names should differ")
	}
	if !strings.HasPrefix(a, "my-selfie_") || !strings.HasSuffix(a, ".jpg") {
		t.Errorf("unexpected name %q", a)
	}
	if n := UniqueName("", ".png"); !strings.HasPrefix(n, "upload_") {
		t.Errorf("unexpected fallback name %q", n)
	}
}

func TestLocalSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ref, err := local.Save(context.Background(), "qr", "qr_1.png", []byte("data"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ref != "/uploads/qr/qr_1.png" {
		t.Errorf("ref = %q", ref)
	}

	got, err := NewLoader(dir).Load(context.Background(), ref)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("loaded %q", got)
	}
}

func TestLoaderRejectsTraversal(t *testing.T) {
	l := NewLoader(t.TempDir())
	if _, err := l.Load(context.Background(), "/uploads/../../etc/passwd"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if _, err := l.Load(context.Background(), "ftp://x"); err == nil {
		t.Fatal("expected unsupported scheme error")
	}
}

func TestLoaderResolvesBareNamesUnderDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "alice.jpg"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(dir)
	got, err := l.Load(context.Background(), "alice.jpg")
	if err != nil || string(got) != "img" {
		t.Fatalf("Load = %q, %v", got, err)
	}
	if _, err := l.Load(context.Background(), "missing.jpg"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing file err = %v, want fs.ErrNotExist", err)
	}
	if _, err := l.Load(context.Background(), "../secret.jpg"); err == nil || errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("traversal err = %v", err)
	}
}

func TestLoaderFetchesRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote"))
	}))
	defer srv.Close()

	got, err := NewLoader("").Load(context.Background(), srv.URL+"/p.jpg")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "remote" {
		t.Errorf("loaded %q", got)
	}
}
