package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_PutAvatar(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("uploads under the user prefix", func(t *testing.T) {
		fake := &fakeS3{}
		store := newS3Store(fake, "chronos-avatars", "https://cdn.chronos.test")

		url, err := store.PutAvatar(ctx, userID, "image/png", strings.NewReader("png-bytes"), 9)
		require.NoError(t, err)

		key := aws.ToString(fake.input.Key)
		assert.True(t, strings.HasPrefix(key, "avatars/"+userID.String()+"/"))
		assert.True(t, strings.HasSuffix(key, ".png"))
		assert.Equal(t, "chronos-avatars", aws.ToString(fake.input.Bucket))
		assert.Equal(t, "https://cdn.chronos.test/"+key, url)
		assert.Equal(t, "png-bytes", fake.body)
	})

	t.Run("rejects unsupported types", func(t *testing.T) {
		store := newS3Store(&fakeS3{}, "b", "https://cdn")
		_, err := store.PutAvatar(ctx, userID, "application/pdf", strings.NewReader("x"), 1)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("rejects oversize uploads", func(t *testing.T) {
		store := newS3Store(&fakeS3{}, "b", "https://cdn")
		_, err := store.PutAvatar(ctx, userID, "image/jpeg", strings.NewReader("x"), MaxAvatarBytes+1)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("wraps upload errors", func(t *testing.T) {
		boom := errors.New("boom")
		store := newS3Store(&fakeS3{err: boom}, "b", "https://cdn")
		_, err := store.PutAvatar(ctx, userID, "image/gif", strings.NewReader("x"), 1)
		assert.ErrorIs(t, err, boom)
	})
}
