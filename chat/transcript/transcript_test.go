package transcript

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/indigo-web/miniserve/config"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	keys  []string
	data  []string
	fails int
}

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	if m.fails > 0 {
		m.fails--
		return errors.New("storage is unavailable")
	}

	m.keys = append(m.keys, key)
	m.data = append(m.data, string(data))
	return nil
}

func TestLogger(t *testing.T) {
	ctx := context.Background()

	t.Run("flush every n", func(t *testing.T) {
		store := new(memStore)
		logger := NewLogger(store, 2)

		require.NoError(t, logger.Log(ctx, "user: hi"))
		require.Empty(t, store.data)
		require.NoError(t, logger.Log(ctx, "bot: hello"))
		require.Equal(t, []string{"user: hi\nbot: hello\n"}, store.data)
		require.Zero(t, logger.Buffered())

		require.NoError(t, logger.Log(ctx, "user: bye"))
		require.NoError(t, logger.Close(ctx))
		require.Equal(t, "user: bye\n", store.data[1])
		require.NotEqual(t, store.keys[0], store.keys[1])
	})

	t.Run("retry after failure", func(t *testing.T) {
		store := &memStore{fails: 1}
		logger := NewLogger(store, 1)

		require.Error(t, logger.Log(ctx, "first"))
		require.Equal(t, 1, logger.Buffered())
		require.NoError(t, logger.Log(ctx, "second"))
		require.Equal(t, []string{"first\nsecond\n"}, store.data)
	})

	t.Run("empty close", func(t *testing.T) {
		store := new(memStore)
		require.NoError(t, NewLogger(store, 0).Close(ctx))
		require.Empty(t, store.keys)
	})
}

func TestNewKey(t *testing.T) {
	pattern := regexp.MustCompile(`^\d+-[A-Za-z0-9]{8}\.log$`)
	require.Regexp(t, pattern, NewKey())
	require.NotEqual(t, NewKey(), NewKey())
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "transcripts")
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "a.log", []byte("hello\n")))
	data, err := os.ReadFile(filepath.Join(dir, "a.log"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(data))

	require.Error(t, store.Put(context.Background(), "../escape.log", nil))
	require.Error(t, store.Put(context.Background(), "", nil))
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeS3) PutObject(
	_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.body = string(body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Store(t *testing.T) {
	t.Run("put", func(t *testing.T) {
		client := new(fakeS3)
		store := NewS3Store(client, "bucket", "chats/")
		require.NoError(t, store.Put(context.Background(), "1-abc.log", []byte("hi\n")))

		require.Equal(t, "bucket", aws.ToString(client.input.Bucket))
		require.Equal(t, "chats/1-abc.log", aws.ToString(client.input.Key))
		require.Equal(t, int64(3), aws.ToInt64(client.input.ContentLength))
		require.Equal(t, "hi\n", client.body)
	})

	t.Run("error", func(t *testing.T) {
		cause := errors.New("access denied")
		store := NewS3Store(&fakeS3{err: cause}, "bucket", "")
		err := store.Put(context.Background(), "k.log", nil)
		require.ErrorIs(t, err, cause)
		require.Contains(t, err.Error(), "s3://bucket/k.log")
	})
}

func TestNew(t *testing.T) {
	cfg := config.Default().Transcript

	store, err := New(cfg)
	require.NoError(t, err)
	require.Equal(t, Discard, store)

	cfg.Dir = t.TempDir()
	store, err = New(cfg)
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, store)

	cfg.Bucket = "bucket"
	cfg.Endpoint = "http://localhost:9000"
	store, err = New(cfg)
	require.NoError(t, err)
	require.IsType(t, &S3Store{}, store)
}
