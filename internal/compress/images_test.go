package compress

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/relaygate/gateway/internal/convo"
)

func TestScaleDimensionsCapsLongEdge(t *testing.T) {
	t.Parallel()
	w, h := scaleDimensions(2000, 1000, 1568, 10_000_000)
	if w != 1568 || h != 784 {
		t.Errorf("got (%d,%d), want (1568,784)", w, h)
	}
}

func TestScaleDimensionsCapsTotalPixels(t *testing.T) {
	t.Parallel()
	w, h := scaleDimensions(1200, 1200, 1568, 1_000_000)
	if w != 1000 || h != 1000 {
		t.Errorf("got (%d,%d), want (1000,1000)", w, h)
	}
}

func TestScaleDimensionsLeavesSmallImageUnchanged(t *testing.T) {
	t.Parallel()
	w, h := scaleDimensions(800, 600, 1568, 1_150_000)
	if w != 800 || h != 600 {
		t.Errorf("got (%d,%d), want (800,600)", w, h)
	}
}

func encodedPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test fixture: %v", err)
	}
	return buf.Bytes()
}

func TestDownscaleImagesResizesOverLongEdgeCap(t *testing.T) {
	t.Parallel()
	state := &convo.ConversationState{
		CurrentMessage: convo.UserMessage{
			Images: []convo.Image{{MimeType: "image/png", Data: encodedPNG(t, 2000, 1000)}},
		},
	}
	cfg := convo.CompressionConfig{
		ImageMaxLongEdge:     1568,
		ImageMaxPixelsSingle: 10_000_000,
		ImageMaxPixelsMulti:  10_000_000,
		ImageMultiThreshold:  20,
	}

	saved := DownscaleImages(state, cfg)
	if saved <= 0 {
		t.Fatal("expected bytes saved from resizing")
	}

	cfgImg, _, err := image.DecodeConfig(bytes.NewReader(state.CurrentMessage.Images[0].Data))
	if err != nil {
		t.Fatalf("resized image must still decode: %v", err)
	}
	if cfgImg.Width != 1568 || cfgImg.Height != 784 {
		t.Errorf("got %dx%d, want 1568x784", cfgImg.Width, cfgImg.Height)
	}
}

func TestDownscaleImagesLeavesSmallImageUntouched(t *testing.T) {
	t.Parallel()
	original := encodedPNG(t, 100, 100)
	state := &convo.ConversationState{
		CurrentMessage: convo.UserMessage{
			Images: []convo.Image{{MimeType: "image/png", Data: original}},
		},
	}
	cfg := convo.CompressionConfig{
		ImageMaxLongEdge:     1568,
		ImageMaxPixelsSingle: 1_150_000,
		ImageMaxPixelsMulti:  4_000_000,
		ImageMultiThreshold:  20,
	}

	saved := DownscaleImages(state, cfg)
	if saved != 0 {
		t.Errorf("expected no resize for a small image, saved=%d", saved)
	}
	if !bytes.Equal(state.CurrentMessage.Images[0].Data, original) {
		t.Error("untouched image data should be byte-identical")
	}
}

func TestDownscaleImagesUsesMultiPixelCapOverThreshold(t *testing.T) {
	t.Parallel()
	images := make([]convo.Image, 3)
	for i := range images {
		images[i] = convo.Image{MimeType: "image/png", Data: encodedPNG(t, 1200, 1200)}
	}
	state := &convo.ConversationState{CurrentMessage: convo.UserMessage{Images: images}}
	cfg := convo.CompressionConfig{
		ImageMaxLongEdge:     4000,
		ImageMaxPixelsSingle: 1_000_000,
		ImageMaxPixelsMulti:  1_440_000, // exactly the source's pixel count: no resize under the multi cap
		ImageMultiThreshold:  3,
	}

	saved := DownscaleImages(state, cfg)
	if saved != 0 {
		t.Errorf("multi-image pixel cap should have left these untouched, saved=%d", saved)
	}
}

func TestDownscaleImagesSkipsUndecodableFormats(t *testing.T) {
	t.Parallel()
	state := &convo.ConversationState{
		CurrentMessage: convo.UserMessage{
			Images: []convo.Image{{MimeType: "image/webp", Data: []byte("not-a-real-webp")}},
		},
	}
	cfg := convo.CompressionConfig{ImageMaxLongEdge: 10, ImageMaxPixelsSingle: 10, ImageMultiThreshold: 20}

	saved := DownscaleImages(state, cfg)
	if saved != 0 {
		t.Errorf("unsupported formats should pass through untouched, saved=%d", saved)
	}
}
