package pipeshell

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// ContinuationVersion is the only continuation format this build understands.
const ContinuationVersion = 1

// Continuation captures everything needed to resume a halted pipeline. It
// references no runtime memory and may be encoded into a token that crosses
// process boundaries.
type Continuation struct {
	Version int `json:"version"`

	// Pipeline holds only the stages after the halting stage.
	Pipeline Pipeline `json:"pipeline"`

	// ResumeAtIndex is the absolute index of Pipeline[0] within the
	// original pipeline.
	ResumeAtIndex int `json:"resumeAtIndex"`

	// Items are replayed as the input of Pipeline[0].
	Items []Item `json:"items"`

	Prompt string `json:"prompt"`
}

// Validate checks the fields that a decoded continuation must satisfy.
func (c *Continuation) Validate() error {
	if c.Version != ContinuationVersion {
		return fmt.Errorf("unsupported continuation version %d", c.Version)
	}
	if c.ResumeAtIndex < 0 {
		return fmt.Errorf("negative resume index %d", c.ResumeAtIndex)
	}
	for i, inv := range c.Pipeline {
		if inv.Name == "" {
			return fmt.Errorf("stage %d has no command name", i)
		}
	}
	return nil
}

// Token wire format, before base64url encoding:
//
//	magic "ps" | format byte | zstd(JSON continuation) | BLAKE3 keyed MAC (32 bytes)
//
// The MAC covers everything before it.
const (
	tokenMagic   = "ps"
	tokenFormat  = byte(1)
	tokenMACSize = 32
	tokenHeader  = len(tokenMagic) + 1
)

// defaultTokenKey is used when no secret is configured. It makes tokens
// tamper-evident against corruption but not against someone who has read
// this source.
var defaultTokenKey = blake3.Sum256([]byte("pipeshell resume token v1"))

var tokenEncoding = base64.RawURLEncoding

// TokenCodec encodes and decodes resume tokens.
type TokenCodec struct {
	key [32]byte

	initOnce sync.Once
	initErr  error
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// NewTokenCodec returns a codec whose MAC key is derived from secret. An
// empty secret selects the built-in key.
func NewTokenCodec(secret []byte) *TokenCodec {
	c := &TokenCodec{key: defaultTokenKey}
	if len(secret) > 0 {
		c.key = blake3.Sum256(secret)
	}
	return c
}

func (c *TokenCodec) init() error {
	c.initOnce.Do(func() {
		c.encoder, c.initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if c.initErr != nil {
			return
		}
		c.decoder, c.initErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(64<<20))
	})
	return c.initErr
}

func (c *TokenCodec) mac(data []byte) ([]byte, error) {
	hasher, err := blake3.NewKeyed(c.key[:])
	if err != nil {
		return nil, err
	}
	hasher.Write(data)
	return hasher.Sum(nil), nil
}

// Encode serializes a continuation into an opaque token string.
func (c *TokenCodec) Encode(cont *Continuation) (string, error) {
	if cont == nil {
		return "", fmt.Errorf("continuation is required")
	}
	if err := cont.Validate(); err != nil {
		return "", fmt.Errorf("failed to encode continuation: %w", err)
	}
	if err := c.init(); err != nil {
		return "", fmt.Errorf("failed to create token compressor: %w", err)
	}
	payload, err := json.Marshal(continuationForWire(cont))
	if err != nil {
		return "", fmt.Errorf("failed to marshal continuation: %w", err)
	}

	buf := make([]byte, 0, tokenHeader+len(payload)+tokenMACSize)
	buf = append(buf, tokenMagic...)
	buf = append(buf, tokenFormat)
	buf = c.encoder.EncodeAll(payload, buf)
	sum, err := c.mac(buf)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	buf = append(buf, sum...)
	return tokenEncoding.EncodeToString(buf), nil
}

// Decode parses a token produced by Encode. Any corruption, a foreign key,
// or an unknown version fails with *TokenError; no partial value is ever
// returned.
func (c *TokenCodec) Decode(token string) (*Continuation, error) {
	if token == "" {
		return nil, tokenError("token is empty", nil)
	}
	raw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return nil, tokenError("not base64url", err)
	}
	if len(raw) < tokenHeader+tokenMACSize {
		return nil, tokenError("token is truncated", nil)
	}
	if string(raw[:len(tokenMagic)]) != tokenMagic {
		return nil, tokenError("not a resume token", nil)
	}

	body, sum := raw[:len(raw)-tokenMACSize], raw[len(raw)-tokenMACSize:]
	want, err := c.mac(body)
	if err != nil {
		return nil, tokenError("failed to verify token", err)
	}
	if subtle.ConstantTimeCompare(sum, want) != 1 {
		return nil, tokenError("integrity check failed", nil)
	}
	if format := raw[len(tokenMagic)]; format != tokenFormat {
		return nil, tokenError(fmt.Sprintf("unsupported token format %d", format), nil)
	}

	if err := c.init(); err != nil {
		return nil, tokenError("failed to create token decompressor", err)
	}
	payload, err := c.decoder.DecodeAll(body[tokenHeader:], nil)
	if err != nil {
		return nil, tokenError("failed to decompress payload", err)
	}

	cont, err := decodeContinuation(payload)
	if err != nil {
		return nil, err
	}
	return cont, nil
}

// continuationForWire normalizes nil slices so encoding is stable.
func continuationForWire(c *Continuation) *Continuation {
	out := *c
	if out.Pipeline == nil {
		out.Pipeline = Pipeline{}
	}
	if out.Items == nil {
		out.Items = []Item{}
	}
	return &out
}

func decodeContinuation(payload []byte) (*Continuation, error) {
	// Peek at the version first so a future format fails with a clear reason
	// instead of an unknown-field error.
	var header struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, tokenError("payload is not JSON", err)
	}
	if header.Version == nil {
		return nil, tokenError("payload has no version", nil)
	}
	if *header.Version != ContinuationVersion {
		return nil, tokenError(fmt.Sprintf("unsupported continuation version %d", *header.Version), nil)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	var cont Continuation
	if err := dec.Decode(&cont); err != nil {
		return nil, tokenError("malformed payload", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, tokenError("trailing data after payload", nil)
	}
	if err := cont.Validate(); err != nil {
		return nil, tokenError("invalid continuation", err)
	}
	if cont.Pipeline == nil {
		cont.Pipeline = Pipeline{}
	}
	if cont.Items == nil {
		cont.Items = []Item{}
	}
	return &cont, nil
}
