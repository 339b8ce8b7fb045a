package storage

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectAPI struct {
	pages   []*s3.ListObjectsV2Output
	listErr error
	calls   int
	tokens  []string
}

func (f *fakeObjectAPI) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.tokens = append(f.tokens, aws.ToString(params.ContinuationToken))
	out := f.pages[f.calls]
	f.calls++
	return out, nil
}

func (f *fakeObjectAPI) PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) DeleteObject(context.Context, *s3.DeleteObjectInput, ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, nil
}

type fakePresign struct{}

func (fakePresign) PresignGetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://signed.test/" + aws.ToString(params.Key)}, nil
}

func object(key string, size int64) types.Object {
	return types.Object{Key: aws.String(key), Size: aws.Int64(size)}
}

func newTestStorage(client objectAPI) *S3Storage {
	return &S3Storage{
		client:  client,
		presign: fakePresign{},
		bucket:  "trophies",
		log:     slog.Default(),
	}
}

func TestList_FollowsContinuationTokens(t *testing.T) {
	client := &fakeObjectAPI{pages: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{object("trophy-1/a.jpg", 3), object("trophy-1/b.jpg", 4)},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("page-2"),
		},
		{
			Contents:    []types.Object{object("trophy-1/c.mp4", 5)},
			IsTruncated: aws.Bool(false),
		},
	}}
	s := newTestStorage(client)

	files, err := s.List(context.Background(), "trophy-1")
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, 2, client.calls)
	assert.Equal(t, []string{"", "page-2"}, client.tokens)

	assert.Equal(t, "trophy-1/c.mp4", files[2].Key)
	assert.Equal(t, "c.mp4", files[2].Name)
	assert.Equal(t, int64(5), files[2].Size)
	assert.Equal(t, "https://signed.test/trophy-1/c.mp4", files[2].Url)
}

func TestList_SinglePage(t *testing.T) {
	client := &fakeObjectAPI{pages: []*s3.ListObjectsV2Output{
		{Contents: []types.Object{object("trophy-1/a.jpg", 3)}},
	}}
	s := newTestStorage(client)

	files, err := s.List(context.Background(), "trophy-1")
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, 1, client.calls)
}

func TestList_SurfacesClientError(t *testing.T) {
	client := &fakeObjectAPI{listErr: errors.New("connection refused")}
	s := newTestStorage(client)

	_, err := s.List(context.Background(), "trophy-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
