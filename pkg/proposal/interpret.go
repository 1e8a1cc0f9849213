// Package proposal recovers signal proposals from loosely formatted
// generated text.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dd0wney/cluso-signalpatch/pkg/logging"
)

// Sink receives the diagnostic artifact for undecodable input.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
}

// Interpreter turns a proposal source into a Proposal.
type Interpreter struct {
	sink   Sink
	logger logging.Logger
}

// NewInterpreter creates an interpreter. sink may be nil, in which case
// undecodable input is only logged.
func NewInterpreter(sink Sink, logger logging.Logger) *Interpreter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Interpreter{
		sink:   sink,
		logger: logger.With(logging.Component("proposal")),
	}
}

// Interpret resolves and decodes a proposal source. It never mutates a
// network. Every failure is reported as ErrNoProposal; undecodable text
// is persisted as InvalidOutputName first.
func (in *Interpreter) Interpret(ctx context.Context, source string) (*Proposal, error) {
	if source == "" {
		in.logger.Info("no proposal source given")
		return nil, ErrNoProposal
	}

	src, err := ResolveSource(source)
	if err != nil {
		in.logger.Warn("failed to read proposal", logging.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNoProposal, err)
	}

	p, err := Decode(src.Text)
	if err != nil {
		in.logger.Warn("could not decode proposal, saving raw output",
			logging.Path(src.Path),
			logging.String("artifact", InvalidOutputName))
		if in.sink != nil {
			if werr := in.sink.Put(ctx, InvalidOutputName, []byte(src.Text)); werr != nil {
				in.logger.Error("failed to save raw proposal", logging.Error(werr))
			}
		}
		return nil, err
	}

	in.logger.Info("decoded proposal",
		logging.Path(src.Path),
		logging.String("method", p.Method.String()),
		logging.Int("snippets", len(p.Snippets)),
		logging.Int("actions", len(p.Actions)))
	for _, d := range p.Diagnostics {
		in.logger.Warn(d.Message, logging.String("subject", d.Subject))
	}
	return p, nil
}

// ResolveSource reads a proposal source. An existing file is read; a glob
// pattern (with ** support) reads its lexicographically last match, which
// for timestamped outputs is the newest; anything else is inline text.
func ResolveSource(source string) (Source, error) {
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		return readSource(source)
	}

	if isPattern(source) {
		matches, err := doublestar.FilepathGlob(source, doublestar.WithFilesOnly())
		if err == nil && len(matches) > 0 {
			sort.Strings(matches)
			return readSource(matches[len(matches)-1])
		}
	}

	return Source{Text: source}, nil
}

func readSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read proposal %s: %w", path, err)
	}
	return Source{Path: path, Text: string(data)}, nil
}

// isPattern reports whether source looks like a path pattern rather
// than inline text.
func isPattern(source string) bool {
	if strings.ContainsAny(source, "\n\"") {
		return false
	}
	return strings.ContainsAny(source, "*?[") && doublestar.ValidatePathPattern(source)
}

// IsNoProposal reports whether err means there was nothing to merge.
func IsNoProposal(err error) bool {
	return errors.Is(err, ErrNoProposal)
}
