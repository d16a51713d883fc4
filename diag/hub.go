// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package diag

import (
	"bufio"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
)

// hubLen is the number of lines a client can lag behind before being
// dropped.
const hubLen = 64

const writeTimeout = 2 * time.Second

var errSlow = errors.New("client too slow")

// Hub broadcasts status lines to websocket clients.
//
// Publishing never blocks on clients. A client that falls more than 64
// lines behind is disconnected.
type Hub struct {
	log     logrus.FieldLogger
	cond    *sync.Cond
	lines   [hubLen]string
	seq     int // Number of lines published.
	clients int
	closed  bool
}

// NewHub returns a Hub. log may be nil.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Hub{log: log, cond: sync.NewCond(&sync.Mutex{})}
}

// Status implements Sink.
func (h *Hub) Status(s *Status) {
	h.Publish(s.String())
}

// Publish appends a line and wakes up the clients.
func (h *Hub) Publish(line string) {
	h.cond.L.Lock()
	defer h.cond.L.Unlock()
	h.lines[h.seq%hubLen] = line
	h.seq++
	h.cond.Broadcast()
}

// Last returns the most recent line.
func (h *Hub) Last() string {
	h.cond.L.Lock()
	defer h.cond.L.Unlock()
	if h.seq == 0 {
		return ""
	}
	return h.lines[(h.seq-1)%hubLen]
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.cond.L.Lock()
	defer h.cond.L.Unlock()
	return h.clients
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.cond.L.Lock()
	defer h.cond.L.Unlock()
	h.closed = true
	h.cond.Broadcast()
	return nil
}

// Handler serves the latest line on / and the stream on /stream.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.root)
	mux.Handle("/stream", websocket.Handler(h.stream))
	return loggingHandler{log: h.log, handler: mux}
}

func (h *Hub) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, h.Last()+"\n")
}

func (h *Hub) stream(ws *websocket.Conn) {
	defer ws.Close()
	h.cond.L.Lock()
	h.clients++
	h.cond.L.Unlock()
	err := h.serve(deadlineWriter{ws})
	h.cond.L.Lock()
	h.clients--
	h.cond.L.Unlock()
	if err != nil {
		h.log.WithFields(logrus.Fields{"remote": ws.Request().RemoteAddr, "err": err}).Info("websocket closed")
	}
}

// serve writes every line to w, starting with the most recent one, until
// the hub is closed or w fails.
func (h *Hub) serve(w io.Writer) error {
	h.cond.L.Lock()
	defer h.cond.L.Unlock()
	next := max(h.seq-1, 0)
	for {
		for !h.closed && next == h.seq {
			h.cond.Wait()
		}
		if h.closed {
			return nil
		}
		if h.seq-next > hubLen {
			return errSlow
		}
		line := h.lines[next%hubLen]
		next++
		// Do the actual I/O without the lock.
		h.cond.L.Unlock()
		_, err := io.WriteString(w, line)
		h.cond.L.Lock()
		if err != nil {
			return err
		}
	}
}

type deadlineWriter struct {
	ws *websocket.Conn
}

func (d deadlineWriter) Write(p []byte) (int, error) {
	if err := d.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return 0, err
	}
	return d.ws.Write(p)
}

type loggingHandler struct {
	log     logrus.FieldLogger
	handler http.Handler
}

type loggingResponseWriter struct {
	http.ResponseWriter
	length int
	status int
}

func (l *loggingResponseWriter) Write(data []byte) (size int, err error) {
	size, err = l.ResponseWriter.Write(data)
	l.length += size
	return
}

func (l *loggingResponseWriter) WriteHeader(status int) {
	l.ResponseWriter.WriteHeader(status)
	l.status = status
}

// Hijack is needed for websocket.
func (l *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := l.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

func (l loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
	l.handler.ServeHTTP(lrw, r)
	l.log.WithFields(logrus.Fields{
		"remote": r.RemoteAddr,
		"status": lrw.status,
		"bytes":  lrw.length,
		"method": r.Method,
	}).Debug(r.RequestURI)
}
