package runtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mellonka/vipipe-go/internal/meta"
	"github.com/mellonka/vipipe-go/internal/transport"
	"github.com/mellonka/vipipe-go/internal/typed"
	"github.com/mellonka/vipipe-go/internal/wire"
)

func pair(t *testing.T) (readAddr, writeAddr string) {
	t.Helper()
	base := fmt.Sprintf("runtime-%s-%d", t.Name(), time.Now().UnixNano())
	return "inproc://in-" + base, "inproc://out-" + base
}

// newDrivenRuntime wires a feeder writer -> reader -> Runtime -> writer ->
// collector reader, so the test can push messages in and observe what comes
// out, mirroring spec.md's "stub reader"/"writer collects messages" setup.
func newDrivenRuntime(t *testing.T) (feed *typed.Writer, collect *typed.Reader, rt *Runtime) {
	t.Helper()
	inAddr, outAddr := pair(t)

	feedW, err := typed.NewWriter(transport.WriterOptions{Address: inAddr, SocketMode: transport.ModePush})
	require.NoError(t, err)
	require.NoError(t, feedW.Start())

	rtReader, err := typed.NewReader(transport.ReaderOptions{Address: inAddr, SocketMode: transport.ModePull, ReadTimeoutMs: 30})
	require.NoError(t, err)

	rtWriter, err := typed.NewWriter(transport.WriterOptions{Address: outAddr, SocketMode: transport.ModePush})
	require.NoError(t, err)

	collectR, err := typed.NewReader(transport.ReaderOptions{Address: outAddr, SocketMode: transport.ModePull, ReadTimeoutMs: 500})
	require.NoError(t, err)
	require.NoError(t, collectR.Start())
	require.NoError(t, rtWriter.Start())

	t.Cleanup(func() {
		_ = feedW.Stop()
		_ = collectR.Stop()
	})

	time.Sleep(20 * time.Millisecond)
	return feedW, collectR, New(rtReader, rtWriter)
}

func TestHandlerPassThroughWithEOS(t *testing.T) {
	feed, collect, rt := newDrivenRuntime(t)

	shutdownCalls := 0
	rt.OnShutdown = func() { shutdownCalls++ }

	done := make(chan error, 1)
	go func() { done <- rt.Run(context.Background()) }()

	require.NoError(t, feed.Write(&wire.Caps{CapsStr: "video/x-raw", Width: 640, Height: 480}))
	require.NoError(t, feed.Write(&wire.Buffer{Payload: []byte("frame")}))
	require.NoError(t, feed.Write(&wire.EndOfStream{}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not exit after EndOfStream")
	}
	assert.Equal(t, 1, shutdownCalls)

	var tags []wire.Tag
	for i := 0; i < 3; i++ {
		msg, outcome, err := collect.Read()
		require.NoError(t, err)
		if outcome != typed.Got {
			break
		}
		tags = append(tags, msg.Tag())
	}
	assert.Equal(t, []wire.Tag{wire.TagCaps, wire.TagBuffer, wire.TagEndOfStream}, tags)

	// the writer must never receive a second EndOfStream: shutdown()'s final
	// write is skipped once the loop has already forwarded one.
	msg, outcome, err := collect.Read()
	require.NoError(t, err)
	if outcome == typed.Got {
		t.Fatalf("unexpected extra message after EndOfStream: %v", msg.Tag())
	}
}

func TestTimeoutLiveness(t *testing.T) {
	inAddr, outAddr := pair(t)

	rtReader, err := typed.NewReader(transport.ReaderOptions{Address: inAddr, SocketMode: transport.ModePull, ReadTimeoutMs: 50})
	require.NoError(t, err)

	feedW, err := typed.NewWriter(transport.WriterOptions{Address: inAddr, SocketMode: transport.ModePush})
	require.NoError(t, err)
	require.NoError(t, feedW.Start())
	t.Cleanup(func() { _ = feedW.Stop() })

	rtWriter, err := typed.NewWriter(transport.WriterOptions{Address: outAddr, SocketMode: transport.ModePush})
	require.NoError(t, err)
	require.NoError(t, rtWriter.Start())

	collectR, err := typed.NewReader(transport.ReaderOptions{Address: outAddr, SocketMode: transport.ModePull, ReadTimeoutMs: 500})
	require.NoError(t, err)
	require.NoError(t, collectR.Start())
	t.Cleanup(func() { _ = collectR.Stop() })

	time.Sleep(20 * time.Millisecond)

	rt := New(rtReader, rtWriter)
	done := make(chan error, 1)
	go func() { done <- rt.Run(context.Background()) }()

	time.Sleep(400 * time.Millisecond)
	rt.SetStop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not respond to SetStop")
	}

	msg, outcome, err := collectR.Read()
	require.NoError(t, err)
	require.Equal(t, typed.Got, outcome)
	assert.Equal(t, wire.TagEndOfStream, msg.Tag())
}

func TestCustomMetaValidatorRejectsBadBody(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"required": ["label"],
		"properties": {"label": {"type": "string"}}
	}`)
	validator, err := meta.NewValidatorFromJSON(schema)
	require.NoError(t, err)

	inAddr, outAddr := pair(t)

	feedW, err := typed.NewWriter(transport.WriterOptions{Address: inAddr, SocketMode: transport.ModePush})
	require.NoError(t, err)
	require.NoError(t, feedW.Start())
	t.Cleanup(func() { _ = feedW.Stop() })

	rtReader, err := typed.NewReader(transport.ReaderOptions{Address: inAddr, SocketMode: transport.ModePull, ReadTimeoutMs: 30})
	require.NoError(t, err)

	rtWriter, err := typed.NewWriter(transport.WriterOptions{Address: outAddr, SocketMode: transport.ModePush})
	require.NoError(t, err)
	require.NoError(t, rtWriter.Start())
	t.Cleanup(func() { _ = rtWriter.Stop() })

	time.Sleep(20 * time.Millisecond)

	rt := New(rtReader, rtWriter, WithCustomMetaValidator(validator))

	done := make(chan error, 1)
	go func() { done <- rt.Run(context.Background()) }()

	require.NoError(t, feedW.Write(&wire.CustomMeta{Body: map[string]interface{}{"oops": true}}))

	select {
	case err := <-done:
		var ve *meta.ValidationError
		require.ErrorAs(t, err, &ve)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not reject invalid custom_meta body")
	}
}

func TestHandlerErrorStillRunsShutdown(t *testing.T) {
	feed, _, rt := newDrivenRuntime(t)

	shutdownCalls := 0
	rt.OnShutdown = func() { shutdownCalls++ }
	boom := fmt.Errorf("handler exploded")
	rt.Handlers.OnBuffer = func(b wire.Buffer) (wire.Message, Flow) {
		panic(boom)
	}

	done := make(chan error, 1)
	go func() { done <- rt.Run(context.Background()) }()

	require.NoError(t, feed.Write(&wire.Buffer{Payload: []byte("x")}))

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not terminate after handler panic")
	}
	assert.Equal(t, 1, shutdownCalls)
}
