package artifact

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
		f.meta = make(map[string]map[string]string)
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = body
	f.meta[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8", Digest(nil))
	assert.Len(t, Digest([]byte("<net/>")), 64)
	assert.NotEqual(t, Digest([]byte("a")), Digest([]byte("b")))
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"run_merged.net.xml", false},
		{"invalid_llm_output.txt", false},
		{"", true},
		{".", true},
		{"../escape.xml", true},
		{"a..b", true},
		{"sub/dir.xml", true},
		{`win\path.xml`, true},
	}

	for _, tt := range tests {
		err := ValidateName(tt.name)
		if tt.wantErr {
			assert.True(t, errors.Is(err, ErrInvalidName), "name %q: %v", tt.name, err)
		} else {
			assert.NoError(t, err, tt.name)
		}
	}
}

func TestFSStorePut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	s, err := NewFSStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "run_merged.net.xml", []byte("first")))
	require.NoError(t, s.Put(ctx, "run_merged.net.xml", []byte("second")))

	got, err := os.ReadFile(filepath.Join(dir, "run_merged.net.xml"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	assert.Error(t, s.Put(ctx, "../x", nil))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = s.Put(cancelled, "late.txt", nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestS3StorePut(t *testing.T) {
	client := &fakeS3{}
	s, err := NewS3Store(client, S3Options{Bucket: "runs", Prefix: "/city/2906/"})
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "run_report.json", []byte(`{"ok":true}`)))

	assert.Equal(t, "city/2906/run_report.json", s.Key("run_report.json"))
	assert.Equal(t, "s3://runs/city/2906/run_report.json", s.Location("run_report.json"))
	assert.Equal(t, `{"ok":true}`, string(client.objects["runs/city/2906/run_report.json"]))
	assert.Equal(t, Digest([]byte(`{"ok":true}`)), client.meta["runs/city/2906/run_report.json"]["blake2b"])
}

func TestS3StoreCompress(t *testing.T) {
	client := &fakeS3{}
	s, err := NewS3Store(client, S3Options{Bucket: "runs", Compress: true})
	require.NoError(t, err)

	data := []byte("<net>" + string(make([]byte, 1024)) + "</net>")
	require.NoError(t, s.Put(context.Background(), "run_ensured.net.xml", data))

	stored := client.objects["runs/run_ensured.net.xml.snappy"]
	require.NotNil(t, stored)
	assert.Less(t, len(stored), len(data))

	decoded, err := snappy.Decode(nil, stored)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestS3StoreErrors(t *testing.T) {
	_, err := NewS3Store(&fakeS3{}, S3Options{})
	assert.True(t, errors.Is(err, ErrNoBucket))

	boom := errors.New("access denied")
	s, err := NewS3Store(&fakeS3{err: boom}, S3Options{Bucket: "runs"})
	require.NoError(t, err)

	err = s.Put(context.Background(), "a.txt", []byte("x"))
	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "s3://runs/a.txt", ae.Location)
	assert.True(t, errors.Is(err, boom))
}

func TestTeeStore(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	good := &fakeS3{}
	mirror, err := NewS3Store(good, S3Options{Bucket: "a"})
	require.NoError(t, err)

	tee := NewTeeStore(fs, mirror)
	require.NoError(t, tee.Put(context.Background(), "x.txt", []byte("data")))
	assert.Equal(t, fs.Location("x.txt"), tee.Location("x.txt"))
	assert.Equal(t, "data", string(good.objects["a/x.txt"]))

	failing, err := NewS3Store(&fakeS3{err: errors.New("offline")}, S3Options{Bucket: "b"})
	require.NoError(t, err)
	tee = NewTeeStore(fs, mirror, failing)

	err = tee.Put(context.Background(), "y.txt", []byte("more"))
	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "mirror", ae.Op)

	_, statErr := os.Stat(fs.Location("y.txt"))
	assert.NoError(t, statErr, "primary write succeeds even when a mirror fails")
}

func TestRecorder(t *testing.T) {
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	r := NewRecorder(fs)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "a.xml", []byte("one")))
	require.NoError(t, r.Put(ctx, "b.json", []byte("two")))
	require.NoError(t, r.Put(ctx, "a.xml", []byte("three")))
	assert.Error(t, r.Put(ctx, "../c", nil))

	recs := r.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "a.xml", recs[0].Name)
	assert.Equal(t, Digest([]byte("three")), recs[0].Digest)
	assert.Equal(t, 5, recs[0].Size)
	assert.Equal(t, fs.Location("b.json"), recs[1].Location)
}

func TestDialS3RequiresSecretWithAccessKey(t *testing.T) {
	_, err := DialS3(context.Background(), S3Options{})
	assert.True(t, errors.Is(err, ErrNoBucket))

	_, err = DialS3(context.Background(), S3Options{Bucket: "runs", AccessKeyID: "AKIA"})
	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "dial", ae.Op)
	assert.Contains(t, err.Error(), "SecretAccessKey")
}
