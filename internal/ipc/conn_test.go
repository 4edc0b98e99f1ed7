package ipc

import (
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func pipePair() (*Conn, *Conn) {
	a, b := net.Pipe()
	return NewConn(a), NewConn(b)
}

func TestConnRoundTrip(t *testing.T) {
	client, server := pipePair()
	defer client.Close()
	defer server.Close()

	sent := Message{
		Kind:     KindTranscribe,
		Audio:    []byte{0x01, 0x02, 0xFF},
		Language: "en",
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, client.Send(sent))
	}()

	got, err := server.Recv()
	require.NoError(t, err)
	require.Equal(t, sent, got)
	wg.Wait()
}

func TestConnRecvEOFOnPeerClose(t *testing.T) {
	client, server := pipePair()
	defer server.Close()

	require.NoError(t, client.Close())

	_, err := server.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestConnMultipleMessagesInOrder(t *testing.T) {
	client, server := pipePair()
	defer client.Close()
	defer server.Close()

	go func() {
		client.Send(Message{Kind: KindReady})
		client.Send(Message{Kind: KindResult, OK: true, Text: "hello"})
		client.Send(Message{Kind: KindLog, Level: "INFO", Record: "warmed up"})
	}()

	first, err := server.Recv()
	require.NoError(t, err)
	require.Equal(t, KindReady, first.Kind)

	second, err := server.Recv()
	require.NoError(t, err)
	require.Equal(t, "hello", second.Text)
	require.True(t, second.OK)

	third, err := server.Recv()
	require.NoError(t, err)
	require.Equal(t, KindLog, third.Kind)
}
