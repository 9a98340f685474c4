package avatar

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSquare_FillsToSize(t *testing.T) {
	t.Parallel()

	out, err := Square(bytes.NewReader(pngBytes(t, 400, 300)), Size)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, Size, img.Bounds().Dx())
	assert.Equal(t, Size, img.Bounds().Dy())
}

func TestSquare_RejectsNonImage(t *testing.T) {
	t.Parallel()

	_, err := Square(strings.NewReader("plain text"), Size)
	assert.Error(t, err)
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h with no
// pixel data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestSquare_RejectsOversizedImage(t *testing.T) {
	t.Parallel()

	_, err := Square(bytes.NewReader(pngHeader(60000, 60000)), Size)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Square(bytes.NewReader(pngHeader(MaxDimension+1, 10)), Size)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSquare_AcceptsWideImage(t *testing.T) {
	t.Parallel()

	out, err := Square(bytes.NewReader(pngBytes(t, 300, 20)), Size)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ContactsApp/alice.png", Key("alice"))
}

func TestGravatar_Lookup(t *testing.T) {
	t.Parallel()

	// md5("alice@example.com")
	const known = "c160f8cc69a4f0bf2b0362752353d060"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "404", r.URL.Query().Get("d"))
		if r.URL.Path == "/avatar/"+known {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	g := &Gravatar{BaseURL: srv.URL, Client: srv.Client()}

	url, err := g.Lookup(context.Background(), "  Alice@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/avatar/"+known, url)

	_, err = g.Lookup(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNoGravatar)
}

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Store_Put(t *testing.T) {
	t.Parallel()

	fp := &fakePutter{}
	s := &S3Store{client: fp, bucket: "avatars", publicURL: "http://minio:9000/avatars"}

	url, err := s.Put(context.Background(), Key("alice"), []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/avatars/ContactsApp/alice.png", url)
	assert.Equal(t, "avatars", aws.ToString(fp.in.Bucket))
	assert.Equal(t, "ContactsApp/alice.png", aws.ToString(fp.in.Key))
	assert.Equal(t, "image/png", aws.ToString(fp.in.ContentType))
	assert.Equal(t, []byte("png"), fp.body)

	fp.err = errors.New("access denied")
	_, err = s.Put(context.Background(), Key("alice"), []byte("png"), "image/png")
	assert.Error(t, err)
}
