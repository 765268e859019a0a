package agent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/locuscode/locus/internal/session"
)

// TokenEstimator approximates how many tokens a session's accumulated
// turns would cost the provider, the input to the context-compression
// check (§4.6.1 step 2). Implementations need not be exact — only
// monotonic enough that the 85%-of-limit trigger fires before a real
// provider would reject the request.
type TokenEstimator interface {
	EstimateSession(turns []session.Turn) int
}

// CharEstimator is the default TokenEstimator: chars/4, the same rough
// heuristic context.rs's estimate_session_tokens uses. It needs no
// external table and never errors, so it is the safe fallback when no
// tokenizer model is configured.
type CharEstimator struct{}

// EstimateSession sums every block's character length across every turn
// and divides by 4.
func (CharEstimator) EstimateSession(turns []session.Turn) int {
	var chars int
	for _, t := range turns {
		for _, b := range t.Blocks {
			chars += len(b.Text)
			if b.ToolUse != nil {
				chars += len(b.ToolUse.Args)
			}
			if b.ToolResult != nil {
				chars += len(b.ToolResult.Output)
			}
		}
	}
	return chars / 4
}

// TiktokenEstimator counts tokens with a real BPE encoding, for callers
// that want a tighter bound than CharEstimator's heuristic and are
// willing to pay the encoding cost. Falls back to CharEstimator's
// heuristic for any turn it fails to encode (e.g. an unrecognised
// encoding name), rather than erroring the whole estimate.
type TiktokenEstimator struct {
	encodingName string

	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// NewTiktokenEstimator builds an estimator using the named BPE encoding
// (e.g. "cl100k_base"). The encoding is resolved lazily on first use.
func NewTiktokenEstimator(encodingName string) *TiktokenEstimator {
	return &TiktokenEstimator{encodingName: encodingName}
}

func (e *TiktokenEstimator) encoder() (*tiktoken.Tiktoken, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enc != nil {
		return e.enc, nil
	}
	enc, err := tiktoken.GetEncoding(e.encodingName)
	if err != nil {
		return nil, err
	}
	e.enc = enc
	return enc, nil
}

// EstimateSession encodes every text-bearing block and sums the token
// counts; tool-call argument/result JSON is estimated with
// CharEstimator's heuristic since it isn't natural-language text.
func (e *TiktokenEstimator) EstimateSession(turns []session.Turn) int {
	enc, err := e.encoder()
	if err != nil {
		return CharEstimator{}.EstimateSession(turns)
	}
	var total int
	for _, t := range turns {
		for _, b := range t.Blocks {
			if b.Text != "" {
				total += len(enc.Encode(b.Text, nil, nil))
			}
			if b.ToolUse != nil {
				total += len(b.ToolUse.Args) / 4
			}
			if b.ToolResult != nil {
				total += len(b.ToolResult.Output) / 4
			}
		}
	}
	return total
}
