package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-dukhno/pgcore/internal/executor"
	"github.com/alex-dukhno/pgcore/internal/planner"
)

func TestDDLTag(t *testing.T) {
	cases := []struct {
		kind planner.ChangeKind
		want string
	}{
		{planner.ChangeCreateSchema, "CREATE SCHEMA"},
		{planner.ChangeDropSchemas, "DROP SCHEMA"},
		{planner.ChangeCreateTable, "CREATE TABLE"},
		{planner.ChangeDropTables, "DROP TABLE"},
		{planner.ChangeCreateIndex, "CREATE INDEX"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ddlTag(c.kind))
	}
}

func TestQueryTag(t *testing.T) {
	cases := []struct {
		outcome executor.Outcome
		want    string
	}{
		{executor.Outcome{Kind: executor.RecordsInserted, Count: 3}, "INSERT 0 3"},
		{executor.Outcome{Kind: executor.RecordsUpdated, Count: 2}, "UPDATE 2"},
		{executor.Outcome{Kind: executor.RecordsDeleted, Count: 1}, "DELETE 1"},
		{executor.Outcome{Kind: executor.RecordsSelected, Count: 5}, "SELECT 5"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, queryTag(c.outcome))
	}
}

func TestEngineCancelRegistry(t *testing.T) {
	e := &Engine{cancels: make(map[int32]context.CancelFunc)}
	_, cancel := context.WithCancel(context.Background())
	cancelled := false
	e.registerCancel(7, func() { cancelled = true; cancel() })

	e.requestCancel(7)
	assert.True(t, cancelled)

	e.unregisterCancel(7)
	cancelled = false
	e.requestCancel(7)
	assert.False(t, cancelled, "cancel must not fire again once unregistered")
}

func TestReadFrameAccumulatesPartialWrites(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	decode := func(buf []byte) (string, int, error) {
		if len(buf) < 4 {
			return "", 0, nil
		}
		n := int(buf[0])
		if len(buf) < 1+n {
			return "", 0, nil
		}
		return string(buf[1 : 1+n]), 1 + n, nil
	}

	done := make(chan struct{})
	var got string
	var err error
	go func() {
		var buf []byte
		got, err = readFrame(server, &buf, decode)
		close(done)
	}()

	// Write the frame split across two separate writes to exercise the
	// accumulate-then-retry path.
	msg := append([]byte{5}, []byte("hello")...)
	client.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, werr := client.Write(msg[:2])
	require.NoError(t, werr)
	time.Sleep(10 * time.Millisecond)
	_, werr = client.Write(msg[2:])
	require.NoError(t, werr)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("readFrame did not return in time")
	}
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}
