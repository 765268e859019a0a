package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/locuscode/locus/internal/config"
	"github.com/locuscode/locus/internal/session"
)

// transcript is the on-disk shape `locus continue` reloads: enough of
// the prior Session to rebuild an equivalent RuntimeConfig and replay
// its turn log into a fresh Runtime. internal/session.Session has no
// persistence of its own (Continue() only builds an in-memory child
// copying config and repo root); this is the CLI-layer mechanism that
// fills that gap, since neither the runtime nor original_source's
// retained locus_cli sources hand over a ready-made one.
type transcript struct {
	SessionID string         `json:"session_id"`
	Config    session.Config `json:"config"`
	Turns     []session.Turn `json:"turns"`
}

func transcriptPath() (string, error) {
	dir, err := config.DefaultStoreDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "last_session.json"), nil
}

// saveTranscript persists sess's config and turn log so a later
// `locus continue` can resume it. Failure to persist is never fatal to
// the run that produced it — callers should log and continue.
func saveTranscript(sess *session.Session) error {
	path, err := transcriptPath()
	if err != nil {
		return err
	}
	t := transcript{SessionID: sess.ID(), Config: sess.Config(), Turns: sess.Turns()}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("locus: encode session transcript: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// loadTranscript reads back the most recently saved transcript.
func loadTranscript() (transcript, error) {
	path, err := transcriptPath()
	if err != nil {
		return transcript{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return transcript{}, fmt.Errorf("locus: no previous session to continue: %w", err)
	}
	var t transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return transcript{}, fmt.Errorf("locus: decode session transcript: %w", err)
	}
	return t, nil
}

// joinArgs renders a kong variadic positional-arg slice back into one
// prompt string.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
