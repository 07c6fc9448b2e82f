package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeThumbnail(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 400))
	for x := 0; x < 400; x++ {
		for y := 0; y < 400; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	out, err := NormalizeThumbnail(buf.Bytes())
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, ThumbnailWidth, img.Bounds().Dx())
	assert.Equal(t, ThumbnailHeight, img.Bounds().Dy())

	_, err = NormalizeThumbnail([]byte("not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestCoverRect(t *testing.T) {
	assert.Equal(t, image.Rect(0, 87, 400, 312), coverRect(image.Rect(0, 0, 400, 400), 16, 9))
	assert.Equal(t, image.Rect(100, 0, 900, 450), coverRect(image.Rect(0, 0, 1000, 450), 16, 9))
}

func TestKeysAndContentTypes(t *testing.T) {
	key := GenerateKey("/thumbnails/", "Cover.PNG")
	assert.True(t, strings.HasPrefix(key, "thumbnails/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.True(t, IsVideo("intro.mp4"))
	assert.False(t, IsVideo("intro.png"))
}

type fakeS3 struct {
	s3iface.S3API
	put    []*s3.PutObjectInput
	delete []string
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.put = append(f.put, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.delete = append(f.delete, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestSpacesClientUsesCDN(t *testing.T) {
	api := &fakeS3{}
	c := newSpacesClient(api, SpacesConfig{Bucket: "media", Endpoint: "blr1.digitaloceanspaces.com", CDNURL: "https://cdn.example.com"})

	obj, err := c.Upload(context.Background(), "videos/a.mp4", bytes.NewReader([]byte("x")), "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/videos/a.mp4", obj.URL)
	require.Len(t, api.put, 1)
	assert.Equal(t, "public-read", aws.StringValue(api.put[0].ACL))

	require.NoError(t, c.Delete(context.Background(), "videos/a.mp4"))
	assert.Equal(t, []string{"videos/a.mp4"}, api.delete)

	plain := newSpacesClient(api, SpacesConfig{Bucket: "media", Endpoint: "blr1.digitaloceanspaces.com"})
	assert.Equal(t, "https://media.blr1.digitaloceanspaces.com/k", plain.GetFileURL("k"))
}

func TestMemoryStorage(t *testing.T) {
	m := NewMemoryStorage("http://localhost/media/")
	obj, err := m.Upload(context.Background(), "a/b.jpg", bytes.NewReader([]byte("img")), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/media/a/b.jpg", obj.URL)
	assert.True(t, m.Has("a/b.jpg"))
	require.NoError(t, m.Delete(context.Background(), "a/b.jpg"))
	assert.Equal(t, 0, m.Len())
}
