package ocr

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeDataURL(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	data, mediaType, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "image/png", mediaType)
}

func TestDecodeDataURL_Unpadded(t *testing.T) {
	url := "data:image/png;base64," + base64.RawStdEncoding.EncodeToString([]byte("ab"))

	data, _, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), data)
}

func TestDecodeDataURL_PercentEncoded(t *testing.T) {
	data, mediaType, err := DecodeDataURL("data:,hello%20world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, "text/plain", mediaType)
}

func TestDecodeDataURL_Invalid(t *testing.T) {
	for _, in := range []string{"", "http://example.com/a.png", "data:image/png;base64", "data:image/png;base64,!!!"} {
		_, _, err := DecodeDataURL(in)
		assert.Error(t, err, in)
	}
}

func TestPreprocess(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 240, G: 240, B: 240, A: 128})

	out, err := Preprocess(encodePNG(t, src))
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	c0 := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	assert.Equal(t, c0.R, c0.G)
	assert.Equal(t, c0.G, c0.B)
	// Red has luma 76, which the contrast stretch pushes further from mid-gray.
	assert.Less(t, int(c0.R), 76)

	c1 := color.NRGBAModel.Convert(img.At(1, 0)).(color.NRGBA)
	assert.Equal(t, uint8(128), c1.A)
	assert.Greater(t, int(c1.R), 240)
}

func TestPreprocess_RejectsGarbage(t *testing.T) {
	_, err := Preprocess([]byte("not an image"))
	assert.Error(t, err)
}
