package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chxlky/lichtrinh/database"
	"github.com/chxlky/lichtrinh/internal/assistant"
	"github.com/chxlky/lichtrinh/internal/nlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssistant(t *testing.T) *assistant.Assistant {
	t.Helper()
	db, err := database.Init(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	loc := time.FixedZone("ICT", 7*3600)
	svc := assistant.NewService(database.NewStore(db), nil, loc)
	return assistant.New(nlp.NewKeywordResolver(), nlp.NewExtractor(""), svc, assistant.Options{
		Location: loc,
		Clock:    func() time.Time { return time.Date(2026, 10, 18, 10, 30, 0, 0, loc) },
	})
}

func TestAnswerPrintsReply(t *testing.T) {
	asst := newTestAssistant(t)
	var out bytes.Buffer

	require.NoError(t, answer(context.Background(), asst, &out, "xin chào"))
	assert.Equal(t, assistant.MessageUnknown+"\n", out.String())

	out.Reset()
	require.NoError(t, answer(context.Background(), asst, &out, "xóa lịch đi bơi"), "a miss is an answer")
	assert.Equal(t, "Không tìm thấy lịch bơi.\n", out.String())

	out.Reset()
	require.NoError(t, answer(context.Background(), asst, &out, "  "))
	assert.Empty(t, out.String())
}

func TestLockedWriterKeepsLinesWhole(t *testing.T) {
	var buf bytes.Buffer
	out := &lockedWriter{w: &buf}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fmt.Fprintln(out, strings.Repeat(string(rune('a'+i)), 200))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 20)
	for _, line := range lines {
		require.Len(t, line, 200)
		assert.Equal(t, strings.Repeat(line[:1], 200), line)
	}
}

func TestWaitForShutdownOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reason, stop := waitForShutdown(ctx, make(chan error))
	assert.Equal(t, "context cancelled", reason)
	assertReturns(t, stop)
}

func TestWaitForShutdownOnServerError(t *testing.T) {
	errs := make(chan error, 1)
	errs <- errors.New("bind: address already in use")

	reason, stop := waitForShutdown(context.Background(), errs)
	assert.Equal(t, "server error", reason)
	assert.Error(t, <-errs, "the error stays available to the caller")

	// stop releases the signal watcher and is safe to repeat
	assertReturns(t, stop)
	assertReturns(t, stop)
}

func assertReturns(t *testing.T, fn func()) {
	t.Helper()
	finished := make(chan struct{})
	go func() {
		fn()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("did not return")
	}
}
