package objstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type fakeS3 struct {
	putIn     *s3.PutObjectInput
	putErr    error
	putBody   []byte
	deleteIn  *s3.DeleteObjectInput
	deleteErr error
	headErr   error
	listOut   []*s3.ListObjectsV2Output
	listCalls int
	listErr   error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putIn = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.putBody = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleteIn = in
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := f.listOut[f.listCalls]
	f.listCalls++
	return out, nil
}

type fakePresigner struct {
	url string
	err error
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: f.url}, nil
}

func newTestStore(api s3API, p s3Presigner) *S3Store {
	return &S3Store{
		client:       api,
		presign:      p,
		bucket:       "documents",
		baseEndpoint: "http://127.0.0.1:9000/",
		presignTTL:   15 * time.Minute,
	}
}

// -------- tests --------

func TestS3Store_Put_StreamsAndReturnsStableURL(t *testing.T) {
	api := &fakeS3{}
	s := newTestStore(api, nil)

	payload := []byte("%PDF-1.4 test payload")
	var lastWritten int64

	url, err := s.Put(context.Background(), "documents/u1/report.pdf",
		bytes.NewReader(payload), int64(len(payload)),
		func(written, total int64) { lastWritten = written })

	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/documents/documents/u1/report.pdf", url)
	assert.Equal(t, payload, api.putBody, "bytes must arrive unmodified")
	assert.Equal(t, int64(len(payload)), lastWritten)
	assert.Equal(t, "documents", aws.ToString(api.putIn.Bucket))
	assert.Equal(t, int64(len(payload)), aws.ToInt64(api.putIn.ContentLength))
}

func TestS3Store_Put_Error(t *testing.T) {
	api := &fakeS3{putErr: errors.New("boom")}
	s := newTestStore(api, nil)

	_, err := s.Put(context.Background(), "k", bytes.NewReader(nil), 0, nil)
	require.Error(t, err)
}

func TestS3Store_Delete(t *testing.T) {
	api := &fakeS3{}
	s := newTestStore(api, nil)

	require.NoError(t, s.Delete(context.Background(), "documents/u1/a.pdf"))
	assert.Equal(t, "documents/u1/a.pdf", aws.ToString(api.deleteIn.Key))

	api.deleteErr = errors.New("down")
	require.Error(t, s.Delete(context.Background(), "k"))
}

func TestS3Store_List_Paginates(t *testing.T) {
	api := &fakeS3{
		listOut: []*s3.ListObjectsV2Output{
			{
				Contents: []types.Object{
					{Key: aws.String("documents/u1/a.pdf"), Size: aws.Int64(10)},
				},
				IsTruncated:           aws.Bool(true),
				NextContinuationToken: aws.String("tok"),
			},
			{
				Contents: []types.Object{
					{Key: aws.String("documents/u1/b.pdf"), Size: aws.Int64(20)},
				},
				IsTruncated: aws.Bool(false),
			},
		},
	}
	s := newTestStore(api, nil)

	got, err := s.List(context.Background(), "documents/u1/")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ObjectInfo{Key: "documents/u1/a.pdf", SizeBytes: 10}, got[0])
	assert.Equal(t, ObjectInfo{Key: "documents/u1/b.pdf", SizeBytes: 20}, got[1])
	assert.Equal(t, 2, api.listCalls)
}

func TestS3Store_Exists(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		s := newTestStore(&fakeS3{}, nil)
		ok, err := s.Exists(context.Background(), "k")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing maps to false, nil", func(t *testing.T) {
		s := newTestStore(&fakeS3{headErr: &types.NotFound{}}, nil)
		ok, err := s.Exists(context.Background(), "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("transport error propagates", func(t *testing.T) {
		s := newTestStore(&fakeS3{headErr: errors.New("down")}, nil)
		_, err := s.Exists(context.Background(), "k")
		require.Error(t, err)
	})
}

func TestS3Store_PresignGet(t *testing.T) {
	s := newTestStore(nil, &fakePresigner{url: "http://signed"})
	url, err := s.PresignGet(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "http://signed", url)

	s = newTestStore(nil, &fakePresigner{err: errors.New("no sign")})
	_, err = s.PresignGet(context.Background(), "k")
	require.Error(t, err)
}
