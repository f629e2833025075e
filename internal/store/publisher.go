package store

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"filippo.io/age"

	"evscan/internal/logging"
)

// Publisher uploads report artifacts to a Store under a per-run key
// prefix. When age recipients are configured, artifacts are encrypted
// in transit to the store; local copies stay plaintext.
type Publisher struct {
	store      Store
	recipients []age.Recipient
	runID      string
	logger     logging.Logger
}

// NewPublisher creates a Publisher. recipientsPath may be empty, in
// which case artifacts are published unencrypted.
func NewPublisher(store Store, recipientsPath, runID string, logger logging.Logger) (*Publisher, error) {
	var recipients []age.Recipient
	if recipientsPath != "" {
		f, err := os.Open(recipientsPath)
		if err != nil {
			return nil, fmt.Errorf("opening recipients file: %w", err)
		}
		defer f.Close()

		recipients, err = age.ParseRecipients(f)
		if err != nil {
			return nil, fmt.Errorf("parsing recipients file: %w", err)
		}
	}

	return &Publisher{
		store:      store,
		recipients: recipients,
		runID:      runID,
		logger:     logger,
	}, nil
}

// Publish uploads each artifact file under <runID>/<basename>, with an
// ".age" suffix when encryption is configured.
func (p *Publisher) Publish(artifactPaths []string) error {
	for _, artifact := range artifactPaths {
		if err := p.publishOne(artifact); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishOne(artifact string) error {
	f, err := os.Open(artifact)
	if err != nil {
		return fmt.Errorf("opening artifact %s: %w", artifact, err)
	}
	defer f.Close()

	key := path.Join(p.runID, filepath.Base(artifact))

	var body io.Reader = f
	if len(p.recipients) > 0 {
		encrypted, err := p.encrypt(f)
		if err != nil {
			return fmt.Errorf("encrypting artifact %s: %w", artifact, err)
		}
		body = encrypted
		key += ".age"
	}

	if err := p.store.Put(key, body); err != nil {
		return fmt.Errorf("publishing artifact %s: %w", artifact, err)
	}
	p.logger.Info("artifact published", "key", key)
	return nil
}

// encrypt buffers the age ciphertext for the artifact. Reports are
// small relative to the evidence they summarize, so buffering is fine.
func (p *Publisher) encrypt(r io.Reader) (io.Reader, error) {
	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, p.recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return nil, fmt.Errorf("encrypting data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return &buf, nil
}
