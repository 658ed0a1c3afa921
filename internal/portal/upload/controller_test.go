package upload

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgcert/indigene-certificate/internal/validation"
)

func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fakeJPEG(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
	return data
}

func TestOversizedJPEGIsRejected(t *testing.T) {
	c := NewController(IDSlipConfig(5*validation.MB), nil)

	f, err := c.Upload(context.Background(), &File{Name: "slip.jpg", Type: "image/jpeg", Data: fakeJPEG(6 * validation.MB)}, nil)
	require.Error(t, err)
	assert.Nil(t, f)

	s := c.Snapshot()
	assert.Nil(t, s.File)
	assert.Equal(t, PreviewNone, s.Preview.Kind)
	assert.False(t, s.Busy)
	assert.Zero(t, s.Progress)
	assert.EqualError(t, s.Err, "NIN slip must not exceed 5MB")
}

func TestCompressedPNGIsNotLarger(t *testing.T) {
	data := noisyPNG(t, 500, 500)
	c := NewController(PhotoConfig(2*validation.MB), nil)

	var milestones []int
	f, err := c.Upload(context.Background(), &File{Name: "me.png", Data: data}, func(p int) {
		milestones = append(milestones, p)
	})
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.LessOrEqual(t, f.Size, int64(len(data)))
	assert.Equal(t, []int{10, 40, 70, 100}, milestones)

	s := c.Snapshot()
	assert.Same(t, f, s.File)
	assert.Equal(t, PreviewImage, s.Preview.Kind)
	assert.True(t, strings.HasPrefix(s.Preview.Data, "data:"+f.Type+";base64,"))
	assert.Equal(t, 100, s.Progress)
	assert.NoError(t, s.Err)
}

func TestLargeImageIsDownscaled(t *testing.T) {
	data := noisyPNG(t, 1600, 400)
	cfg := PhotoConfig(5 * validation.MB)
	c := NewController(cfg, nil)

	f, err := c.Upload(context.Background(), &File{Name: "wide.png", Data: data}, nil)
	require.NoError(t, err)
	assert.Equal(t, validation.MimeJPEG, f.Type)
	assert.Equal(t, "wide.jpg", f.Name)

	img, _, err := image.Decode(bytes.NewReader(f.Data))
	require.NoError(t, err)
	assert.Equal(t, cfg.MaxDimension, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestUndecodableImageFallsBackToOriginal(t *testing.T) {
	data := fakeJPEG(2048)
	c := NewController(PhotoConfig(validation.MB), nil)

	f, err := c.Upload(context.Background(), &File{Name: "broken.jpg", Data: data}, nil)
	require.NoError(t, err)
	assert.Equal(t, data, f.Data)
	assert.Equal(t, "broken.jpg", f.Name)
}

// hugePNG is a small PNG whose header declares w x h pixels.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc
	binary.BigEndian.PutUint32(data[16:], w)
	binary.BigEndian.PutUint32(data[20:], h)
	binary.BigEndian.PutUint32(data[29:], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestOversizedDimensionsSkipCompression(t *testing.T) {
	data := hugePNG(t, 100_000, 100_000)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 100_000, cfg.Width)

	_, err = compressImage(data, defaultMaxDimension, 80)
	assert.ErrorIs(t, err, errTooManyPixels)

	c := NewController(PhotoConfig(validation.MB), nil)
	f, err := c.Upload(context.Background(), &File{Name: "huge.png", Data: data}, nil)
	require.NoError(t, err)
	assert.Equal(t, data, f.Data)
	assert.Equal(t, "huge.png", f.Name)
}

func TestPDFGetsDocumentPreview(t *testing.T) {
	data := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n%%EOF")
	c := NewController(CertificateScanConfig(), nil)

	f, err := c.Upload(context.Background(), &File{Name: "scan.pdf", Data: data}, nil)
	require.NoError(t, err)
	assert.Equal(t, validation.MimePDF, f.Type)
	assert.Equal(t, Preview{Kind: PreviewDocument}, c.Snapshot().Preview)
}

func TestRejectedTypeKeepsPreviousFile(t *testing.T) {
	c := NewController(PhotoConfig(2*validation.MB), nil)
	first, err := c.Upload(context.Background(), &File{Name: "me.png", Data: noisyPNG(t, 20, 20)}, nil)
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), &File{Name: "cv.pdf", Data: []byte("%PDF-1.4 tiny")}, nil)
	require.Error(t, err)

	s := c.Snapshot()
	assert.Same(t, first, s.File)
	assert.EqualError(t, s.Err, "Passport photograph must be one of: JPEG, PNG")
}

func TestRemoveClearsEverything(t *testing.T) {
	c := NewController(PhotoConfig(2*validation.MB), nil)
	_, err := c.Upload(context.Background(), &File{Name: "me.png", Data: noisyPNG(t, 20, 20)}, nil)
	require.NoError(t, err)

	c.Remove()
	assert.Equal(t, State{}, c.Snapshot())
	c.Remove()
	assert.Equal(t, State{}, c.Snapshot())
}

func TestCancelledUploadDoesNotPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewController(PhotoConfig(2*validation.MB), nil)

	_, err := c.Upload(ctx, &File{Name: "me.png", Data: noisyPNG(t, 20, 20)}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, c.File())
}

func TestCheckAggregate(t *testing.T) {
	a := &File{Size: 3 * validation.MB}
	b := &File{Size: 2 * validation.MB}
	assert.NoError(t, CheckAggregate(validation.DigitizationMaxTotal, a, b, nil))

	c := &File{Size: 2 * validation.MB}
	err := CheckAggregate(validation.DigitizationMaxTotal, a, b, c)
	require.Error(t, err)
	assert.Equal(t, validation.AggregateSizeMessage, err.Error())
}
