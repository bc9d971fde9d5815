// Package codec turns match payloads into compressed blobs and back.
//
// A blob is the canonical JSON of the payload, wrapped under "data", compressed
// with zstd. The layout is internal to the store and carries no version header.
package codec

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/valstats/matchcache/internal/models"
)

var (
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
	initErr     error
	codecOnce   sync.Once
	maxBlobSize uint64 = 64 << 20
)

func coders() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, initErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if initErr != nil {
			return
		}
		decoder, initErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBlobSize))
	})
	return encoder, decoder, initErr
}

// Encode compresses a *models.MatchRecord, a models.Document, or raw JSON bytes.
func Encode(v any) ([]byte, error) {
	doc, err := toDocument(v)
	if err != nil {
		return nil, err
	}
	return EncodeDocument(doc)
}

// EncodeDocument wraps doc under "data" when needed and compresses its canonical JSON.
func EncodeDocument(doc models.Document) ([]byte, error) {
	body, err := json.Marshal(models.Wrap(doc))
	if err != nil {
		return nil, fmt.Errorf("encoding match json: %w", err)
	}
	enc, _, err := coders()
	if err != nil {
		return nil, fmt.Errorf("initializing zstd: %w", err)
	}
	return enc.EncodeAll(body, make([]byte, 0, len(body)/3)), nil
}

// Decode reverses Encode and returns the wrapped JSON document.
func Decode(blob []byte) (json.RawMessage, error) {
	_, dec, err := coders()
	if err != nil {
		return nil, fmt.Errorf("initializing zstd: %w", err)
	}
	body, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, models.Corrupt("decompressing blob", err)
	}
	if !json.Valid(body) {
		return nil, models.Corrupt("parsing blob", fmt.Errorf("invalid json (%d bytes)", len(body)))
	}
	return body, nil
}

// DecodeRecord decodes a blob and parses it into a MatchRecord.
func DecodeRecord(blob []byte) (json.RawMessage, *models.MatchRecord, error) {
	raw, err := Decode(blob)
	if err != nil {
		return nil, nil, err
	}
	rec, ok := models.Parse(raw)
	if !ok {
		return nil, nil, models.Corrupt("parsing blob", fmt.Errorf("no match id"))
	}
	return raw, rec, nil
}

func toDocument(v any) (models.Document, error) {
	switch x := v.(type) {
	case models.Document:
		return x, nil
	case []byte:
		return models.DecodeDocument(x)
	case json.RawMessage:
		return models.DecodeDocument(x)
	case *models.MatchRecord, models.MatchRecord:
		body, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("encoding match record: %w", err)
		}
		return models.DecodeDocument(body)
	}
	return nil, fmt.Errorf("codec: unsupported value %T", v)
}
