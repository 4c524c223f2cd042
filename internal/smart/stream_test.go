package smart

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/smarthttp/internal/substrate"
)

// fakeClient is a scripted substrate for exercising the stream state
// machine without any network.
type fakeClient struct {
	connectErr error

	connects []fakeConnect
	reads    []readCall
	writes   []writeCall
	closed   []substrate.Handle

	chunks  [][]byte // response script, one chunk per read, then EOF
	readErr error

	next substrate.Handle
}

type fakeConnect struct {
	url     string
	method  string
	bufSize int
	headers map[string]string
}

type readCall struct {
	handle substrate.Handle
	n      int
}

type writeCall struct {
	handle substrate.Handle
	data   []byte
}

func (f *fakeClient) Connect(_ context.Context, url string, bufSize int, method string, headers map[string]string) (substrate.Handle, error) {
	if f.connectErr != nil {
		return substrate.NoHandle, f.connectErr
	}
	f.connects = append(f.connects, fakeConnect{url: url, method: method, bufSize: bufSize, headers: headers})
	f.next++
	return f.next, nil
}

func (f *fakeClient) Read(_ context.Context, h substrate.Handle, p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.chunks) == 0 {
		f.reads = append(f.reads, readCall{handle: h})
		return 0, io.EOF
	}
	chunk := f.chunks[0]
	f.chunks = f.chunks[1:]
	n := copy(p, chunk)
	f.reads = append(f.reads, readCall{handle: h, n: n})
	return n, nil
}

func (f *fakeClient) Write(_ context.Context, h substrate.Handle, p []byte) error {
	data := make([]byte, len(p))
	copy(data, p)
	f.writes = append(f.writes, writeCall{handle: h, data: data})
	return nil
}

func (f *fakeClient) Close(h substrate.Handle) error {
	f.closed = append(f.closed, h)
	return nil
}

type testOwner struct {
	headers map[string]string
}

func (o *testOwner) RequestHeaders() map[string]string { return o.headers }

func newTestStream(t *testing.T, fake *fakeClient, service Service) *Stream {
	t.Helper()
	sub, err := NewSubtransport(&testOwner{}, fake, zerolog.Nop())
	require.NoError(t, err)
	stream, err := sub.Action(context.Background(), "https://example.com/repo", service)
	require.NoError(t, err)
	return stream
}

func TestStreamReadConnectsOnce(t *testing.T) {
	fake := &fakeClient{chunks: [][]byte{[]byte("0000"), []byte("0001")}}
	stream := newTestStream(t, fake, ServiceUploadPackLS)

	buf := make([]byte, 64)
	for i := 0; i < 3; i++ {
		stream.Read(buf)
	}

	require.Len(t, fake.connects, 1)
	assert.Equal(t, http.MethodGet, fake.connects[0].method)
	assert.Equal(t, "https://example.com/repo/info/refs?service=git-upload-pack", fake.connects[0].url)
	assert.Equal(t, DefaultBufSize, fake.connects[0].bufSize)

	// Every read went through the same handle.
	require.Len(t, fake.reads, 3)
	for _, r := range fake.reads {
		assert.Equal(t, fake.reads[0].handle, r.handle)
	}
}

func TestStreamReadRoundTrip(t *testing.T) {
	payload := []byte("001e# service=git-upload-pack\n")
	fake := &fakeClient{chunks: [][]byte{payload}}
	stream := newTestStream(t, fake, ServiceUploadPackLS)

	buf := make([]byte, 128)
	n, err := stream.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])

	n, err = stream.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	// End of stream never triggers a second connect.
	assert.Len(t, fake.connects, 1)
}

func TestStreamReadAbort(t *testing.T) {
	fake := &fakeClient{readErr: substrate.ErrAborted}
	stream := newTestStream(t, fake, ServiceUploadPackLS)

	n, err := stream.Read(make([]byte, 16))
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, substrate.ErrAborted))
	assert.Contains(t, err.Error(), "request aborted")
}

func TestStreamWriteFirstSendsContentType(t *testing.T) {
	tests := []struct {
		name        string
		service     Service
		contentType string
	}{
		{
			name:        "upload pack",
			service:     ServiceUploadPack,
			contentType: "application/x-git-upload-pack-request",
		},
		{
			name:        "receive pack",
			service:     ServiceReceivePack,
			contentType: "application/x-git-receive-pack-request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeClient{}
			stream := newTestStream(t, fake, tt.service)

			n, err := stream.Write([]byte("0009done\n"))
			require.NoError(t, err)
			assert.Equal(t, 9, n)

			require.Len(t, fake.connects, 1)
			assert.Equal(t, http.MethodPost, fake.connects[0].method)
			assert.Equal(t, tt.contentType, fake.connects[0].headers["Content-Type"])

			require.Len(t, fake.writes, 1)
			assert.Equal(t, []byte("0009done\n"), fake.writes[0].data)
		})
	}
}

func TestStreamWriteThenReadSharesConnection(t *testing.T) {
	fake := &fakeClient{chunks: [][]byte{[]byte("0008NAK\n")}}
	stream := newTestStream(t, fake, ServiceUploadPack)

	_, err := stream.Write([]byte("0032want aaaa\n"))
	require.NoError(t, err)

	buf := make([]byte, 32)
	n, err := stream.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "0008NAK\n", string(buf[:n]))

	require.Len(t, fake.connects, 1)
	assert.Equal(t, fake.writes[0].handle, fake.reads[0].handle)
}

func TestStreamsAreIndependent(t *testing.T) {
	fake := &fakeClient{chunks: [][]byte{[]byte("response")}}
	sub, err := NewSubtransport(&testOwner{}, fake, zerolog.Nop())
	require.NoError(t, err)

	push, err := sub.Action(context.Background(), "https://example.com/repo", ServiceReceivePack)
	require.NoError(t, err)
	_, err = push.Write([]byte("PACK\x00\x00\x00\x02"))
	require.NoError(t, err)

	fetch, err := sub.Action(context.Background(), "https://example.com/repo", ServiceUploadPackLS)
	require.NoError(t, err)
	_, err = fetch.Read(make([]byte, 16))
	require.NoError(t, err)

	require.Len(t, fake.connects, 2)
	assert.NotEqual(t, push.conn, fetch.conn)
	assert.NotEqual(t, fake.writes[0].handle, fake.reads[0].handle)
}

func TestStreamConnectFailureLeavesNoHandle(t *testing.T) {
	fake := &fakeClient{connectErr: errors.New("connection refused")}
	stream := newTestStream(t, fake, ServiceUploadPackLS)

	_, err := stream.Read(make([]byte, 16))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
	assert.Equal(t, substrate.NoHandle, stream.conn)

	_, err = stream.Write([]byte("x"))
	require.Error(t, err)
	assert.Equal(t, substrate.NoHandle, stream.conn)
}

func TestStreamFreeReleasesConnection(t *testing.T) {
	fake := &fakeClient{chunks: [][]byte{[]byte("data")}}
	stream := newTestStream(t, fake, ServiceUploadPackLS)

	_, err := stream.Read(make([]byte, 16))
	require.NoError(t, err)
	handle := stream.conn

	stream.Free()
	assert.Equal(t, []substrate.Handle{handle}, fake.closed)
	assert.Equal(t, substrate.NoHandle, stream.conn)

	// Freeing twice, or freeing an unconnected stream, is harmless.
	stream.Free()
	assert.Len(t, fake.closed, 1)

	idle := newTestStream(t, fake, ServiceUploadPackLS)
	idle.Free()
	assert.Len(t, fake.closed, 1)
}
