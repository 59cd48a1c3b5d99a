package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonwraymond/toolpilot/chunk"
)

// ErrModelUnavailable is returned when the backend cannot produce a reply.
var ErrModelUnavailable = errors.New("model unavailable")

// DefaultChunkLimit is the conversation size, in runes, above which the
// payload is sent in chunks.
const DefaultChunkLimit = 32 * 1024

// CallOptions tunes one model request.
type CallOptions struct {
	Temperature float64
	MaxTokens   int

	// Timeout bounds the whole call including every chunk. Zero means no
	// bound beyond the caller's context.
	Timeout time.Duration
}

// AdapterConfig configures an Adapter.
type AdapterConfig struct {
	// Completer performs the exchanges.
	// Required.
	Completer Completer

	// Credential validates the backend credential before any request.
	// Optional; when nil every request is attempted.
	Credential func() error

	// Dialect selects reply parsing. Default: DialectAuto.
	Dialect Dialect

	// ChunkLimit is the payload size above which conversations are chunked.
	// Default: DefaultChunkLimit.
	ChunkLimit int

	// Logger receives request events.
	Logger *zerolog.Logger

	// Observe is called once per backend exchange with its success. Optional.
	Observe func(ok bool)
}

// Adapter sends conversations to the backend and parses replies.
type Adapter struct {
	completer  Completer
	credential func() error
	dialect    Dialect
	chunkLimit int
	logger     zerolog.Logger
	observe    func(bool)
}

// NewAdapter creates an Adapter.
func NewAdapter(cfg AdapterConfig) (*Adapter, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("%w: Completer is required", ErrConfiguration)
	}
	if cfg.ChunkLimit <= 0 {
		cfg.ChunkLimit = DefaultChunkLimit
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "dialogue").Logger()
	}
	return &Adapter{
		completer:  cfg.Completer,
		credential: cfg.Credential,
		dialect:    cfg.Dialect,
		chunkLimit: cfg.ChunkLimit,
		logger:     logger,
		observe:    cfg.Observe,
	}, nil
}

// Dialect returns the configured reply dialect.
func (a *Adapter) Dialect() Dialect { return a.dialect }

// CheckCredential reports ErrConfiguration when no request can be sent.
func (a *Adapter) CheckCredential() error {
	if a.credential == nil {
		return nil
	}
	return a.credential()
}

// Send submits conv and parses the reply. Conversations larger than the
// chunk limit are flattened and sent in sequential chunks whose replies are
// concatenated. Any failure returns ErrModelUnavailable and no partial reply.
func (a *Adapter) Send(ctx context.Context, conv Conversation, opts CallOptions) (Reply, error) {
	if err := a.CheckCredential(); err != nil {
		return Reply{}, err
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		text string
		err  error
	)
	if conv.Size() <= a.chunkLimit {
		text, err = a.complete(ctx, ChatRequest{
			Messages:    messages(conv),
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		})
	} else {
		text, err = a.chunked(ctx, flatten(conv), a.chunkLimit, opts)
	}
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, ToolCalls: Parse(text, a.dialect)}, nil
}

// Query sends a raw prompt split into chunks of chunkSize runes and returns
// the concatenated replies. A non-positive chunkSize uses the adapter's limit.
func (a *Adapter) Query(ctx context.Context, prompt string, chunkSize int, opts CallOptions) (string, error) {
	if err := a.CheckCredential(); err != nil {
		return "", err
	}
	if chunkSize <= 0 {
		chunkSize = a.chunkLimit
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return a.chunked(ctx, prompt, chunkSize, opts)
}

func (a *Adapter) chunked(ctx context.Context, payload string, size int, opts CallOptions) (string, error) {
	segments := chunk.Split(payload, size)
	if len(segments) > 1 {
		a.logger.Debug().Int("chunks", len(segments)).Int("chunk_size", size).Msg("sending chunked payload")
	}

	var b strings.Builder
	for i, seg := range segments {
		text, err := a.complete(ctx, ChatRequest{
			Messages:    []Message{{Role: string(RoleUser), Content: seg}},
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		})
		if err != nil {
			return "", err
		}
		b.WriteString(text)
		if len(segments) > 1 {
			fmt.Fprintf(&b, "\n\n--- Chunk %d/%d ---\n\n", i+1, len(segments))
		}
	}
	return b.String(), nil
}

func (a *Adapter) complete(ctx context.Context, req ChatRequest) (string, error) {
	start := time.Now()
	text, err := a.completer.Complete(ctx, req)
	if a.observe != nil {
		a.observe(err == nil)
	}
	if err != nil {
		a.logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("model request failed")
		return "", fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	a.logger.Debug().Dur("duration", time.Since(start)).Int("reply_len", len(text)).Msg("model replied")
	return text, nil
}

func messages(conv Conversation) []Message {
	out := make([]Message, len(conv))
	for i, t := range conv {
		out[i] = Message{Role: string(t.Role), Content: t.Content}
	}
	return out
}

// flatten renders a conversation as a role-tagged transcript.
func flatten(conv Conversation) string {
	parts := make([]string, len(conv))
	for i, t := range conv {
		parts[i] = fmt.Sprintf("[%s]\n%s", t.Role, t.Content)
	}
	return strings.Join(parts, "\n\n")
}
