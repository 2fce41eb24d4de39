// The paperctl command provides a command-line interface for controlling
// the paperfeed renderer through its mailbox.
package main

import "github.com/paperfeed/paperfeed/internal/paperctl/cmd"

func main() {
	cmd.Execute()
}
