// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package diag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/thermcam/go-thermcam/thermal"
)

func testStatus() *Status {
	return &Status{
		Mode:     thermal.Live,
		FPS:      15.9,
		Display:  thermal.Range{Low: 20, High: 36.5},
		Rendered: 10,
		Rejected: 1,
		Failed:   2,
	}
}

func TestStatus_String(t *testing.T) {
	s := testStatus().String()
	for _, want := range []string{"LIVE", "fps=15.9", "range=20.0..36.5", "rendered=10", "rejected=1", "failed=2", "render=n/a"} {
		assert.Contains(t, s, want)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&buf, "debug", true)
	require.NoError(t, err)
	(&Logger{L: l}).Status(testStatus())
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "status", m["msg"])
	assert.Equal(t, "LIVE", m["mode"])
	assert.Equal(t, "15.9", m["fps"])
	assert.Equal(t, float64(10), m["rendered"])

	buf.Reset()
	l, err = NewLogger(&buf, "warn", false)
	require.NoError(t, err)
	(&Logger{L: l}).Status(testStatus())
	Logf(l)("hidden %d", 1)
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")

	_, err = NewLogger(&buf, "loud", false)
	require.Error(t, err)
}

type countSink struct{ n int }

func (c *countSink) Status(*Status) { c.n++ }

func TestMulti(t *testing.T) {
	a, b := &countSink{}, &countSink{}
	Multi{a, b}.Status(testStatus())
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}

func TestTimings(t *testing.T) {
	var tm Timings
	assert.Equal(t, Summary{}, tm.Summary())
	tm.Add(3 * time.Millisecond)
	s := tm.Summary()
	assert.Equal(t, Summary{N: 1, Mean: 3 * time.Millisecond, Max: 3 * time.Millisecond}, s)

	tm.Reset()
	tm.Add(2 * time.Millisecond)
	tm.Add(4 * time.Millisecond)
	s = tm.Summary()
	assert.Equal(t, 3*time.Millisecond, s.Mean)
	assert.Equal(t, 4*time.Millisecond, s.Max)
	// Unbiased estimate.
	assert.InDelta(t, 1414214, float64(s.StdDev), 1)
	assert.Contains(t, s.String(), "±")

	// Old samples are evicted.
	for i := 0; i < timingsLen; i++ {
		tm.Add(time.Millisecond)
	}
	s = tm.Summary()
	assert.Equal(t, timingsLen, s.N)
	assert.Equal(t, time.Millisecond, s.Mean)
	assert.Zero(t, s.StdDev)
}

func TestHub_websocket(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()
	h.Publish("first")

	ws, err := websocket.Dial("ws://"+srv.Listener.Addr().String()+"/stream", "", "http://localhost/")
	require.NoError(t, err)
	var msg string
	require.NoError(t, websocket.Message.Receive(ws, &msg))
	assert.Equal(t, "first", msg)
	assert.Equal(t, 1, h.Clients())

	h.Status(testStatus())
	require.NoError(t, websocket.Message.Receive(ws, &msg))
	assert.True(t, strings.HasPrefix(msg, "LIVE"), msg)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, msg+"\n", string(body))

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, h.Close())
	ws.Close()
}

type blockingWriter struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingWriter) Write(p []byte) (int, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return len(p), nil
}

func TestHub_slowClient(t *testing.T) {
	h := NewHub(nil)
	h.Publish("first")
	w := &blockingWriter{started: make(chan struct{}), release: make(chan struct{})}
	done := make(chan error)
	go func() { done <- h.serve(w) }()
	<-w.started
	for i := 0; i < hubLen+1; i++ {
		h.Publish(fmt.Sprintf("line %d", i))
	}
	close(w.release)
	err := <-done
	assert.True(t, errors.Is(err, errSlow), "%v", err)
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestHub_writeError(t *testing.T) {
	h := NewHub(logrus.New())
	h.Publish("x")
	assert.Equal(t, io.ErrClosedPipe, h.serve(failWriter{}))
}

func TestHub_close(t *testing.T) {
	h := NewHub(nil)
	assert.Equal(t, "", h.Last())
	done := make(chan error)
	go func() { done <- h.serve(io.Discard) }()
	require.NoError(t, h.Close())
	assert.NoError(t, <-done)
}
