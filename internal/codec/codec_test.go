package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscalia/campo/internal/record"
)

func TestEncode_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("plain"),
		{0x00, 0xff, 0x10, 0x00}, // binary with NULs survives
		bytes.Repeat([]byte{0xab}, 1<<16),
		{},
	}

	for _, payload := range payloads {
		src := record.PhotoSource{
			Name:     "p.jpg",
			MIMEType: "image/png",
			Reader:   bytes.NewReader(payload),
		}

		blob, err := Encode(src)
		require.NoError(t, err)
		assert.Equal(t, "image/png", blob.MIMEType)
		assert.Equal(t, payload, append([]byte{}, blob.Data...))

		decoded := Decode(blob)
		assert.Equal(t, blob.Name, decoded.Name)
		assert.Equal(t, blob.MIMEType, decoded.MIMEType)

		data, err := io.ReadAll(decoded.Reader)
		require.NoError(t, err)
		assert.Equal(t, payload, append([]byte{}, data...))
	}
}

func TestEncode_SynthesizesNameAndMIMEType(t *testing.T) {
	blob, err := Encode(record.PhotoSource{Reader: strings.NewReader("x")})
	require.NoError(t, err)

	assert.Regexp(t, `^photo-\d+\.jpg$`, blob.Name)
	assert.Equal(t, "image/jpeg", blob.MIMEType)
}

func TestEncode_KeepsGivenName(t *testing.T) {
	blob, err := Encode(record.PhotoSource{Name: "fachada.png", MIMEType: "image/png", Reader: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "fachada.png", blob.Name)
}

// failingReader simulates a truncated stream.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("device gone")
}

func TestEncode_TruncatedStream(t *testing.T) {
	_, err := Encode(record.PhotoSource{Name: "broken.jpg", Reader: failingReader{}})
	require.Error(t, err)
	assert.True(t, IsCodecError(err))
	assert.Contains(t, err.Error(), "broken.jpg")
}

func TestEncode_NilReader(t *testing.T) {
	_, err := Encode(record.PhotoSource{Name: "x.jpg"})
	require.Error(t, err)
	assert.True(t, IsCodecError(err))
}

func TestEncodeAll_StopsAtFirstFailure(t *testing.T) {
	srcs := []record.PhotoSource{
		{Name: "ok.jpg", Reader: strings.NewReader("fine")},
		{Name: "bad.jpg", Reader: failingReader{}},
		{Name: "later.jpg", Reader: strings.NewReader("never read")},
	}

	blobs, err := EncodeAll(srcs)
	require.Error(t, err)
	assert.True(t, IsCodecError(err))
	assert.Nil(t, blobs)
}

func TestEncodeAll_Empty(t *testing.T) {
	blobs, err := EncodeAll(nil)
	require.NoError(t, err)
	assert.Empty(t, blobs)
}
