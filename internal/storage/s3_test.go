package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"mailmaster/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, f.err
}

func testArchiver(t *testing.T) *S3Archiver {
	t.Helper()
	a, err := NewS3Archiver(context.Background(), config.S3Config{
		Bucket:    "archive",
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	return a
}

func TestPut(t *testing.T) {
	a := testArchiver(t)
	objects := &fakeObjects{}
	a.client = objects

	err := a.Put(context.Background(), "campaigns/n/c.html", []byte("<p>hi</p>"), "text/html")
	require.NoError(t, err)

	assert.Equal(t, "archive", aws.ToString(objects.input.Bucket))
	assert.Equal(t, "campaigns/n/c.html", aws.ToString(objects.input.Key))
	assert.Equal(t, "text/html", aws.ToString(objects.input.ContentType))
	assert.Equal(t, "<p>hi</p>", objects.body)
}

func TestPutWrapsError(t *testing.T) {
	a := testArchiver(t)
	a.client = &fakeObjects{err: errors.New("denied")}

	err := a.Put(context.Background(), "k", nil, "text/html")
	assert.ErrorContains(t, err, "failed to upload k")
}

func TestSignedURLUsesPathStyleEndpoint(t *testing.T) {
	a := testArchiver(t)

	raw, err := a.SignedURL(context.Background(), "campaigns/n/c.html", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/archive/campaigns/n/c.html"))
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
}

func TestCampaignKey(t *testing.T) {
	assert.Equal(t, "campaigns/n1/c1.html", CampaignKey("n1", "c1"))
}
