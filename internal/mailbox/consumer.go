package mailbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

// Handler processes one command and returns its response. The consumer fills
// in CommandID and CompletedAt.
type Handler func(ctx context.Context, cmd v1alpha1.Command) v1alpha1.Response

// rescanInterval paces the periodic backlog sweep that picks up command
// files whose filesystem event was dropped
const rescanInterval = 5 * time.Second

// Consumer is the single reader of a mailbox directory. It processes command
// files in creation order, answers each with a response file, and archives
// processed commands so a restart never replays them.
type Consumer struct {
	dir     string
	archive string
	handler Handler
	logger  *slog.Logger
	rescan  time.Duration
}

// NewConsumer opens the mailbox for consumption, creating the directory and
// its archive subdirectory if needed
func NewConsumer(dir string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	archive := filepath.Join(dir, ArchiveDir)
	if err := os.MkdirAll(archive, 0o755); err != nil {
		return nil, err
	}
	return &Consumer{
		dir:     dir,
		archive: archive,
		handler: handler,
		logger:  logger,
		rescan:  rescanInterval,
	}, nil
}

// Run scans for commands left over from before startup, then watches the
// directory until the context is canceled. All processing happens on this
// goroutine, preserving creation order.
func (c *Consumer) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(c.dir); err != nil {
		return err
	}
	c.logger.Info("mailbox open", "path", c.dir)

	// commands dropped while no consumer was running
	if err := c.drainBacklog(ctx); err != nil {
		return err
	}

	// the sweep re-runs periodically to pick up files whose event was
	// dropped; processing is idempotent, so catching a file twice is safe
	sweep := time.NewTicker(c.rescan)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isCommandEvent(ev) {
				continue
			}
			c.process(ctx, ev.Name)
		case <-sweep.C:
			if err := c.drainBacklog(ctx); err != nil {
				return err
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			c.logger.Error("mailbox watcher error", "error", err)
		}
	}
}

func isCommandEvent(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	return strings.HasSuffix(base, commandSuffix) && !strings.HasPrefix(base, ".")
}

// drainBacklog processes pending command files in name order; the nanosecond
// prefix makes that creation order
func (c *Consumer) drainBacklog(ctx context.Context) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	var pending []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, commandSuffix) {
			continue
		}
		pending = append(pending, name)
	}
	sort.Strings(pending)
	for _, name := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.process(ctx, filepath.Join(c.dir, name))
	}
	return nil
}

// process handles one command file end to end: parse, dispatch, respond,
// archive. A command already answered (crash between respond and archive) is
// archived without re-execution.
func (c *Consumer) process(ctx context.Context, path string) {
	respPath := responsePathFor(path)
	if _, err := os.Stat(respPath); err == nil {
		c.logger.Warn("command already answered, archiving without replay", "file", filepath.Base(path))
		c.archiveCommand(path)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		c.logger.Error("cannot read command file", "file", filepath.Base(path), "error", err)
		return
	}

	var resp v1alpha1.Response
	var cmd v1alpha1.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.logger.Error("malformed command file", "file", filepath.Base(path), "error", err)
		resp = v1alpha1.Response{
			CommandID: idFromStem(path),
			Status:    v1alpha1.StatusError,
			Error: &v1alpha1.Error{
				Code:    "MALFORMED_COMMAND",
				Message: "malformed command: " + err.Error(),
			},
		}
	} else {
		c.logger.Info("command received", "kind", cmd.Kind, "id", cmd.ID)
		resp = c.handler(ctx, cmd)
		resp.CommandID = cmd.ID
	}
	resp.CompletedAt = time.Now().UTC()

	if err := writeJSONAtomic(respPath, resp); err != nil {
		c.logger.Error("cannot write response file", "file", filepath.Base(respPath), "error", err)
		return
	}
	c.archiveCommand(path)
}

func (c *Consumer) archiveCommand(path string) {
	dest := filepath.Join(c.archive, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		c.logger.Error("cannot archive command file", "file", filepath.Base(path), "error", err)
	}
}
