package compress

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"

	"github.com/relaygate/gateway/internal/convo"
)

// DownscaleImages resizes every image attachment in state down to the
// configured long-edge and pixel-count caps, the largest single contributor
// to the serialized byte budget C3 is built to protect. It runs once per
// request, ahead of C1, mirroring the original's "scale before anything
// else touches the request" ordering.
func DownscaleImages(state *convo.ConversationState, cfg convo.CompressionConfig) int {
	if cfg.ImageMaxLongEdge <= 0 && cfg.ImageMaxPixelsSingle <= 0 && cfg.ImageMaxPixelsMulti <= 0 {
		return 0
	}

	images := collectImages(state)
	if len(images) == 0 {
		return 0
	}

	maxPixels := cfg.ImageMaxPixelsSingle
	if cfg.ImageMultiThreshold > 0 && len(images) >= cfg.ImageMultiThreshold {
		maxPixels = cfg.ImageMaxPixelsMulti
	}

	saved := 0
	for _, img := range images {
		before := len(img.Data)
		out, resized := downscaleOne(img, cfg.ImageMaxLongEdge, maxPixels)
		if !resized {
			continue
		}
		img.Data = out
		saved += before - len(out)
	}
	return saved
}

// collectImages returns pointers to every image attachment in state, history
// and current_message alike, so the caller can resize in place.
func collectImages(state *convo.ConversationState) []*convo.Image {
	var out []*convo.Image
	for i := range state.History {
		if state.History[i].User == nil {
			continue
		}
		for j := range state.History[i].User.Images {
			out = append(out, &state.History[i].User.Images[j])
		}
	}
	for j := range state.CurrentMessage.Images {
		out = append(out, &state.CurrentMessage.Images[j])
	}
	return out
}

// downscaleOne resizes one image if it's over either cap, re-encoding it in
// its original format. Formats this gateway can't decode (webp has no
// stdlib encoder) pass through untouched.
func downscaleOne(img *convo.Image, maxLongEdge, maxPixels int) ([]byte, bool) {
	format, ok := codecForMimeType(img.MimeType)
	if !ok {
		return nil, false
	}

	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, false
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	targetW, targetH := scaleDimensions(width, height, maxLongEdge, maxPixels)
	if targetW == width && targetH == height {
		return nil, false
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, dst)
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	}
	if err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

func codecForMimeType(mimeType string) (string, bool) {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return "jpeg", true
	case "image/png":
		return "png", true
	case "image/gif":
		return "gif", true
	default:
		return "", false
	}
}

// scaleDimensions applies the two scaling rules in order: cap the long edge,
// then cap total pixel count against whichever is true at the end of step
// one. Mirrors apply_scaling_rules's ordering and rounding (floor, minimum
// one pixel per side).
func scaleDimensions(width, height, maxLongEdge, maxPixels int) (int, int) {
	w, h := float64(width), float64(height)

	if maxLongEdge > 0 {
		longEdge := math.Max(w, h)
		if longEdge > float64(maxLongEdge) {
			scale := float64(maxLongEdge) / longEdge
			w *= scale
			h *= scale
		}
	}

	if maxPixels > 0 {
		if pixels := w * h; pixels > float64(maxPixels) {
			scale := math.Sqrt(float64(maxPixels) / pixels)
			w *= scale
			h *= scale
		}
	}

	return int(math.Max(math.Floor(w), 1)), int(math.Max(math.Floor(h), 1))
}
