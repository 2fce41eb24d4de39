package mailbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startConsumer runs a consumer over dir with the given handler until the
// test ends
func startConsumer(t *testing.T, dir string, handler Handler) {
	t.Helper()
	consumer, err := NewConsumer(dir, handler, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func okHandler(ctx context.Context, cmd v1alpha1.Command) v1alpha1.Response {
	return v1alpha1.Response{Status: v1alpha1.StatusOK}
}

func TestSendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	var seen []v1alpha1.CommandKind
	startConsumer(t, dir, func(ctx context.Context, cmd v1alpha1.Command) v1alpha1.Response {
		mu.Lock()
		seen = append(seen, cmd.Kind)
		mu.Unlock()
		return v1alpha1.Response{Status: v1alpha1.StatusOK}
	})

	producer, err := NewProducer(dir)
	require.NoError(t, err)

	cmd := v1alpha1.NewCommand(v1alpha1.CommandRefresh)
	resp, err := producer.Send(context.Background(), cmd, 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, cmd.ID, resp.CommandID)
	assert.Equal(t, v1alpha1.StatusOK, resp.Status)
	assert.False(t, resp.CompletedAt.IsZero())

	mu.Lock()
	assert.Equal(t, []v1alpha1.CommandKind{v1alpha1.CommandRefresh}, seen)
	mu.Unlock()

	// response consumed, command archived
	assert.NoFileExists(t, filepath.Join(dir, stem(cmd)+responseSuffix))
	assert.NoFileExists(t, filepath.Join(dir, stem(cmd)+commandSuffix))
	assert.FileExists(t, filepath.Join(dir, ArchiveDir, stem(cmd)+commandSuffix))
}

func TestErrorResponsePropagates(t *testing.T) {
	dir := t.TempDir()
	startConsumer(t, dir, func(ctx context.Context, cmd v1alpha1.Command) v1alpha1.Response {
		return v1alpha1.Response{
			Status: v1alpha1.StatusError,
			Error:  &v1alpha1.Error{Code: "CONTENT_MISSING", Message: "content item not found"},
		}
	})

	producer, err := NewProducer(dir)
	require.NoError(t, err)

	resp, err := producer.Send(context.Background(), v1alpha1.NewCommand(v1alpha1.CommandDisplay), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.StatusError, resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONTENT_MISSING", resp.Error.Code)
}

func TestBacklogDrainedInCreationOrder(t *testing.T) {
	dir := t.TempDir()
	_, err := NewProducer(dir)
	require.NoError(t, err)

	// drop three commands before any consumer runs, with distinct creation
	// times so the name prefix orders them
	base := time.Now().UTC()
	targets := []string{"first.txt", "second.txt", "third.txt"}
	var cmds []v1alpha1.Command
	for i, target := range targets {
		cmd := v1alpha1.NewCommand(v1alpha1.CommandDisplay)
		cmd.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		cmd.Target = target
		require.NoError(t, writeJSONAtomic(commandPath(dir, cmd), cmd))
		cmds = append(cmds, cmd)
	}

	var mu sync.Mutex
	var order []string
	startConsumer(t, dir, func(ctx context.Context, cmd v1alpha1.Command) v1alpha1.Response {
		mu.Lock()
		order = append(order, cmd.Target)
		mu.Unlock()
		return v1alpha1.Response{Status: v1alpha1.StatusOK}
	})

	// all three responses must appear
	require.Eventually(t, func() bool {
		for _, cmd := range cmds {
			if _, err := os.Stat(filepath.Join(dir, stem(cmd)+responseSuffix)); err != nil {
				return false
			}
		}
		return true
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Equal(t, targets, order)
	mu.Unlock()
}

func TestMalformedCommandAnsweredWithError(t *testing.T) {
	dir := t.TempDir()
	startConsumer(t, dir, okHandler)

	id := uuid.New()
	cmd := v1alpha1.Command{ID: id, CreatedAt: time.Now().UTC()}
	path := commandPath(dir, cmd)
	require.NoError(t, writeFileAtomic(path, []byte("{not json")))

	respPath := responsePathFor(path)
	require.Eventually(t, func() bool {
		_, err := os.Stat(respPath)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(respPath)
	require.NoError(t, err)

	var resp v1alpha1.Response
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, v1alpha1.StatusError, resp.Status)
	// the ID is recovered from the file name even though the body is junk
	assert.Equal(t, id, resp.CommandID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MALFORMED_COMMAND", resp.Error.Code)
}

func TestAlreadyAnsweredCommandNotReplayed(t *testing.T) {
	dir := t.TempDir()

	// simulate a crash between respond and archive: both files exist
	cmd := v1alpha1.NewCommand(v1alpha1.CommandClear)
	path := commandPath(dir, cmd)
	require.NoError(t, writeJSONAtomic(path, cmd))
	require.NoError(t, writeJSONAtomic(responsePathFor(path), v1alpha1.Response{
		CommandID: cmd.ID,
		Status:    v1alpha1.StatusOK,
	}))

	var calls int
	var mu sync.Mutex
	startConsumer(t, dir, func(ctx context.Context, c v1alpha1.Command) v1alpha1.Response {
		mu.Lock()
		calls++
		mu.Unlock()
		return v1alpha1.Response{Status: v1alpha1.StatusOK}
	})

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, ArchiveDir, stem(cmd)+commandSuffix))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	assert.Zero(t, calls)
	mu.Unlock()
	// the stale response stays for its producer to collect
	assert.FileExists(t, responsePathFor(path))
}

func TestPeriodicSweepProcessesEachCommandOnce(t *testing.T) {
	dir := t.TempDir()

	var calls int
	var mu sync.Mutex
	consumer, err := NewConsumer(dir, func(ctx context.Context, c v1alpha1.Command) v1alpha1.Response {
		mu.Lock()
		calls++
		mu.Unlock()
		return v1alpha1.Response{Status: v1alpha1.StatusOK}
	}, testLogger())
	require.NoError(t, err)
	consumer.rescan = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	cmd := v1alpha1.NewCommand(v1alpha1.CommandRefresh)
	path := commandPath(dir, cmd)
	require.NoError(t, writeJSONAtomic(path, cmd))

	respPath := responsePathFor(path)
	require.Eventually(t, func() bool {
		_, err := os.Stat(respPath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	// let many sweeps pass over the answered command; none may replay it
	// or disturb the uncollected response
	time.Sleep(10 * consumer.rescan)
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	assert.FileExists(t, respPath)
	assert.FileExists(t, filepath.Join(dir, ArchiveDir, stem(cmd)+commandSuffix))
}

func TestSendTimeout(t *testing.T) {
	// no consumer is running
	dir := t.TempDir()
	producer, err := NewProducer(dir)
	require.NoError(t, err)

	cmd := v1alpha1.NewCommand(v1alpha1.CommandQueryInfo)
	_, err = producer.Send(context.Background(), cmd, 150*time.Millisecond)
	require.ErrorIs(t, err, ErrResponseTimeout)

	// the command file stays; a late consumer may still process it
	assert.FileExists(t, commandPath(dir, cmd))
}

func TestSendContextCanceled(t *testing.T) {
	dir := t.TempDir()
	producer, err := NewProducer(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = producer.Send(ctx, v1alpha1.NewCommand(v1alpha1.CommandQueryInfo), time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStemOrdersByCreation(t *testing.T) {
	early := v1alpha1.Command{ID: uuid.New(), CreatedAt: time.Unix(100, 0)}
	late := v1alpha1.Command{ID: uuid.New(), CreatedAt: time.Unix(200, 0)}
	assert.Less(t, stem(early), stem(late))
}

func TestIDFromStem(t *testing.T) {
	id := uuid.New()
	cmd := v1alpha1.Command{ID: id, CreatedAt: time.Now()}
	assert.Equal(t, id, idFromStem(commandPath("/mailbox", cmd)))
	assert.Equal(t, uuid.Nil, idFromStem("/mailbox/garbage.cmd.json"))
}
