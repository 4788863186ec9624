package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yardline/internal/apperr"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHeaderProfileAlwaysProducesExactSize(t *testing.T) {
	sizes := [][2]int{{3000, 1000}, {400, 900}, {1200, 630}, {50, 50}, {1, 7}}
	for _, size := range sizes {
		out, err := Transform(encodePNG(t, size[0], size[1]), ProfileHeader)
		require.NoError(t, err)

		w, h, err := Dimensions(out)
		require.NoError(t, err)
		assert.Equal(t, 1200, w, "input %v", size)
		assert.Equal(t, 630, h, "input %v", size)
	}
}

func TestGalleryProfileFitsWithoutUpscaling(t *testing.T) {
	tests := []struct {
		in   [2]int
		want [2]int
	}{
		{in: [2]int{2400, 1600}, want: [2]int{1200, 800}},
		{in: [2]int{3000, 1000}, want: [2]int{1200, 400}},
		{in: [2]int{800, 2000}, want: [2]int{320, 800}},
		{in: [2]int{640, 480}, want: [2]int{640, 480}},
	}
	for _, tt := range tests {
		out, err := Transform(encodePNG(t, tt.in[0], tt.in[1]), ProfileGallery)
		require.NoError(t, err)

		w, h, err := Dimensions(out)
		require.NoError(t, err)
		assert.Equal(t, tt.want, [2]int{w, h}, "input %v", tt.in)
		assert.LessOrEqual(t, w, 1200)
		assert.LessOrEqual(t, h, 800)
	}
}

func TestTransformRejectsGarbage(t *testing.T) {
	_, err := Transform([]byte{0, 0, 0}, ProfileGallery)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(err))
}

func TestDecodeDataURL(t *testing.T) {
	raw := encodePNG(t, 2, 2)
	data, mimeType, err := DecodeDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, raw, data)

	data, _, err = DecodeDataURL("data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0}, data)

	_, _, err = DecodeDataURL("https://example.com/a.png")
	assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(err))

	_, _, err = DecodeDataURL("data:image/png;base64,***")
	assert.Equal(t, apperr.CodeInvalid, apperr.CodeOf(err))
}

// withOrientation splices a minimal big-endian EXIF APP1 segment after the SOI marker.
func withOrientation(t *testing.T, jpegData []byte, orientation byte) []byte {
	t.Helper()
	require.True(t, len(jpegData) > 2 && jpegData[0] == 0xFF && jpegData[1] == 0xD8)

	segment := []byte{
		0xFF, 0xE1, 0x00, 0x22,
		'E', 'x', 'i', 'f', 0x00, 0x00,
		'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, orientation, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	out := append([]byte{0xFF, 0xD8}, segment...)
	return append(out, jpegData[2:]...)
}

func TestGalleryProfileHonoursExifOrientation(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	rotated := withOrientation(t, buf.Bytes(), 6)
	assert.Equal(t, 6, readOrientation(rotated))

	out, err := Transform(rotated, ProfileGallery)
	require.NoError(t, err)
	w, h, err := Dimensions(out)
	require.NoError(t, err)
	assert.Equal(t, 20, w)
	assert.Equal(t, 40, h)

	assert.Equal(t, 1, readOrientation(buf.Bytes()))
}

func TestApplyOrientationMapsCorners(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	marker := color.RGBA{R: 255, A: 255}
	src.Set(0, 0, marker)

	cases := map[int]image.Point{
		2: {2, 0},
		3: {2, 1},
		4: {0, 1},
		5: {0, 0},
		6: {1, 0},
		7: {1, 2},
		8: {0, 2},
	}
	for orientation, want := range cases {
		out := applyOrientation(src, orientation)
		got := color.RGBAModel.Convert(out.At(want.X, want.Y)).(color.RGBA)
		assert.Equal(t, marker, got, "orientation %d", orientation)
	}
}

// frameMarker walks the segment headers and returns the first SOFn marker byte.
func frameMarker(t *testing.T, data []byte) byte {
	t.Helper()
	require.True(t, len(data) > 4 && data[0] == 0xFF && data[1] == 0xD8, "missing SOI")
	for i := 2; i+4 <= len(data); {
		require.Equal(t, byte(0xFF), data[i], "segment at %d", i)
		marker := data[i+1]
		if marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC {
			return marker
		}
		require.NotEqual(t, byte(0xDA), marker, "reached SOS before a frame header")
		length := int(data[i+2])<<8 | int(data[i+3])
		i += 2 + length
	}
	t.Fatal("no frame header found")
	return 0
}

func TestProfilesEncodeProgressive(t *testing.T) {
	for _, profile := range []Profile{ProfileHeader, ProfileGallery} {
		t.Run(profile.Name, func(t *testing.T) {
			out, err := Transform(encodePNG(t, 1600, 900), profile)
			require.NoError(t, err)
			assert.Equal(t, byte(0xC2), frameMarker(t, out))

			// still readable by the stdlib decoder
			_, err = jpeg.Decode(bytes.NewReader(out))
			require.NoError(t, err)
		})
	}
}
