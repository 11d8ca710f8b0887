package ocr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"net/url"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// contrast applied by Preprocess, on the usual -255..255 contrast scale.
const contrast = 1.5

// DecodeDataURL returns the payload and media type of an RFC 2397 data URL.
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, "", fmt.Errorf("not a data URL")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("data URL has no payload separator")
	}

	isBase64 := false
	mediaType := "text/plain"
	for i, part := range strings.Split(meta, ";") {
		switch {
		case i == 0 && part != "":
			mediaType = part
		case part == "base64":
			isBase64 = true
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders drop the padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, "", fmt.Errorf("failed to decode base64 payload: %w", err)
			}
		}
		return data, mediaType, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode payload: %w", err)
	}
	return []byte(data), mediaType, nil
}

// Preprocess converts an encoded image to high-contrast grayscale PNG, which
// usually improves recognition of photographed text. Alpha is preserved.
func Preprocess(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	factor := (259 * (contrast + 255)) / (255 * (259 - contrast))
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			gray := math.Round(0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B))
			v := uint8(math.Min(255, math.Max(0, factor*(gray-128)+128)))
			dst.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: c.A})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
