package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
	"github.com/paperfeed/paperfeed/internal/mailbox"
)

// send writes one command into the mailbox and waits for its response. A
// non-ok response becomes an error so commands exit non-zero.
func send(cmd v1alpha1.Command) (*v1alpha1.Response, error) {
	producer, err := mailbox.NewProducer(cfg.MailboxDir)
	if err != nil {
		return nil, fmt.Errorf("cannot open mailbox: %w", err)
	}

	if debug {
		fmt.Printf("sending %s command %s\n", cmd.Kind, cmd.ID)
	}

	resp, err := producer.Send(context.Background(), cmd, cfg.ResponseTimeout)
	if err != nil {
		return nil, err
	}
	if resp.Status != v1alpha1.StatusOK {
		if resp.Error != nil {
			return resp, fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp, fmt.Errorf("command failed")
	}
	return resp, nil
}

// printPayload pretty-prints a response payload
func printPayload(resp *v1alpha1.Response) error {
	if len(resp.Payload) == 0 {
		return nil
	}
	var pretty interface{}
	if err := json.Unmarshal(resp.Payload, &pretty); err != nil {
		return err
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
