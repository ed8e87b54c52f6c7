package ff

import (
	"io"
	"strings"
)

// FFService is the orchestration layer behind every CLI command. Each
// operation reads its upstream snapshot, issues sequential platform requests,
// reshapes the results, prints a summary to the output writer and overwrites
// its own snapshot.
type FFService struct {
	platform    Platform
	snapshots   SnapshotStore
	tokens      TokenStore
	credentials CredentialsFile
	history     History
	vault       Vault
	encryptor   Encryptor
	logger      Logger
	clock       Clock
	out         io.Writer
}

// Deps carries the collaborators of an FFService. Platform, Snapshots and
// Tokens are required for fetch operations; the rest may be nil.
type Deps struct {
	Platform    Platform
	Snapshots   SnapshotStore
	Tokens      TokenStore
	Credentials CredentialsFile
	History     History
	Vault       Vault
	Encryptor   Encryptor
	Logger      Logger
	Clock       Clock
	Out         io.Writer
}

// NewFFService creates a new FFService with the provided dependencies.
func NewFFService(d Deps) *FFService {
	s := &FFService{
		platform:    d.Platform,
		snapshots:   d.Snapshots,
		tokens:      d.Tokens,
		credentials: d.Credentials,
		history:     d.History,
		vault:       d.Vault,
		encryptor:   d.Encryptor,
		logger:      d.Logger,
		clock:       d.Clock,
		out:         d.Out,
	}
	if s.logger == nil {
		s.logger = NewNopLogger()
	}
	if s.clock == nil {
		s.clock = RealClock{}
	}
	if s.out == nil {
		s.out = io.Discard
	}
	return s
}

// mergePartial folds the failures of several steps into one error. A non-partial
// error in errs is returned unchanged.
func mergePartial(operation string, errs ...error) error {
	merged := &PartialError{Operation: operation}
	for _, err := range errs {
		if err == nil {
			continue
		}
		pe, ok := AsPartial(err)
		if !ok {
			return err
		}
		merged.Failures = append(merged.Failures, pe.Failures...)
	}
	if len(merged.Failures) == 0 {
		return nil
	}
	return merged
}

// indent prefixes every line after the first with pad.
func indent(s, pad string) string {
	return strings.ReplaceAll(s, "\n", "\n"+pad)
}
