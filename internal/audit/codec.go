package audit

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"
)

// Change sets are persisted with encoding/gob rather than JSON: values can be
// dates, numbers or nil, and a text format would round-trip them lossily (a
// date would come back as a string). The tradeoffs — harder schema evolution,
// no cross-language readability — are acceptable for a write-once, read-rarely
// payload.

// EncodingErrorPlaceholder substitutes a string value that could not be
// decoded as UTF-8. Substitution is logged but never fails the transaction;
// a formatting quirk must not block a business write.
const EncodingErrorPlaceholder = "[[invalid encoding]]"

func init() {
	// Concrete types carried inside the ChangeSet's interface values must be
	// known to gob before encoding.
	gob.Register(time.Time{})
	gob.Register(time.Duration(0))
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// EncodeChanges serializes a change set. String values are normalized to
// valid UTF-8 first; byte strings are decoded as UTF-8 text. A value that
// cannot be decoded becomes EncodingErrorPlaceholder with a warning on the
// logger. An encoding failure of the payload itself propagates: a corrupted
// audit log is worse than a failed write.
func EncodeChanges(changes ChangeSet, logger *slog.Logger) ([]byte, error) {
	normalized := make(ChangeSet, len(changes))
	for attr, change := range changes {
		normalized[attr] = Change{
			Old: normalizeValue(change.Old, logger),
			New: normalizeValue(change.New, logger),
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(normalized); err != nil {
		return nil, fmt.Errorf("encode change set: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeChanges deserializes a change set payload.
func DecodeChanges(payload []byte) (ChangeSet, error) {
	var changes ChangeSet
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&changes); err != nil {
		return nil, fmt.Errorf("decode change set: %w", err)
	}
	return changes, nil
}

func normalizeValue(v any, logger *slog.Logger) any {
	switch val := v.(type) {
	case string:
		if utf8.ValidString(val) {
			return val
		}
		if logger != nil {
			logger.Warn("change value is not valid UTF-8, substituting placeholder")
		}
		return EncodingErrorPlaceholder
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		if logger != nil {
			logger.Warn("change value bytes are not valid UTF-8, substituting placeholder")
		}
		return EncodingErrorPlaceholder
	default:
		return v
	}
}
