// Package mailbox implements the directory-based command queue connecting
// the front-end processes to the renderer. Producers drop uniquely named
// command files into the mailbox directory; the single consumer processes
// them in creation order and writes a paired response file for each. The two
// sides share files only, never memory or a port, because the panel's
// SPI/GPIO handle is pinned to exactly one process for the system lifetime.
//
// Delivery is at-most-once per file name. A consumer crash after reading a
// command but before writing its response leaves the command unanswered;
// producers must treat a response timeout as an unknown outcome. Retrying a
// read-only query is safe; blindly retrying a mutating display command is
// not.
package mailbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

const (
	commandSuffix  = ".cmd.json"
	responseSuffix = ".resp.json"
	// ArchiveDir is the subdirectory processed command files move into
	ArchiveDir = "archive"
)

// ErrResponseTimeout reports that no response arrived within the producer's
// deadline; the command's outcome is unknown
var ErrResponseTimeout = errors.New("mailbox response timeout: command outcome unknown")

// stem builds the shared basename of a command/response pair. The
// nanosecond prefix makes lexical order equal creation order.
func stem(cmd v1alpha1.Command) string {
	return fmt.Sprintf("%020d-%s", cmd.CreatedAt.UnixNano(), cmd.ID)
}

func commandPath(dir string, cmd v1alpha1.Command) string {
	return filepath.Join(dir, stem(cmd)+commandSuffix)
}

func responsePathFor(commandFile string) string {
	return strings.TrimSuffix(commandFile, commandSuffix) + responseSuffix
}

// idFromStem recovers the command ID from a file name, used to answer
// malformed command files that cannot be parsed
func idFromStem(name string) uuid.UUID {
	base := strings.TrimSuffix(filepath.Base(name), commandSuffix)
	if i := strings.IndexByte(base, '-'); i >= 0 {
		if id, err := uuid.Parse(base[i+1:]); err == nil {
			return id
		}
	}
	return uuid.Nil
}

// writeFileAtomic writes data under a dot-prefixed temp name and renames it
// into place, so watchers and scans never observe partial files
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}
