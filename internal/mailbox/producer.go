package mailbox

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

// pollInterval is how often a waiting producer checks for its response file
const pollInterval = 50 * time.Millisecond

// Producer submits commands into a mailbox directory and waits for their
// responses. Safe for concurrent use; every command file name is unique.
type Producer struct {
	dir string
}

// NewProducer opens the mailbox directory, creating it if needed
func NewProducer(dir string) (*Producer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Producer{dir: dir}, nil
}

// Send writes the command into the mailbox and blocks until its response
// arrives, the timeout elapses, or the context is canceled. On timeout the
// command file is left in place; the consumer may still pick it up later.
func (p *Producer) Send(ctx context.Context, cmd v1alpha1.Command, timeout time.Duration) (*v1alpha1.Response, error) {
	cmdPath := commandPath(p.dir, cmd)
	if err := writeJSONAtomic(cmdPath, cmd); err != nil {
		return nil, err
	}

	respPath := responsePathFor(cmdPath)
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			data, err := os.ReadFile(respPath)
			if err != nil {
				if os.IsNotExist(err) {
					if time.Now().After(deadline) {
						return nil, ErrResponseTimeout
					}
					continue
				}
				return nil, err
			}
			var resp v1alpha1.Response
			if err := json.Unmarshal(data, &resp); err != nil {
				return nil, err
			}
			os.Remove(respPath)
			return &resp, nil
		}
	}
}
