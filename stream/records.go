package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"pkt.systems/parley/schema"
)

const dataPrefix = "data: "

// doneSentinel marks end-of-stream and is discarded without being
// parsed as JSON; completion is signaled by the {"type":"done"} record.
const doneSentinel = "[DONE]"

type recordDecodeError struct {
	line []byte
	err  error
}

func (e *recordDecodeError) Error() string {
	if e == nil || e.err == nil {
		return "record decode error"
	}
	return e.err.Error()
}

func (e *recordDecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func (e *recordDecodeError) Line() []byte {
	if e == nil {
		return nil
	}
	return e.line
}

// recordStream frames `data: <json>` records out of a byte stream. The
// underlying reader buffers a trailing partial line across reads, so a
// record split over chunk boundaries is reassembled before parsing.
type recordStream struct {
	reader *bufio.Reader
}

func newRecordStream(r io.Reader) *recordStream {
	return &recordStream{reader: bufio.NewReader(r)}
}

// Next returns the next decoded record. Blank lines, lines without the
// data prefix, and the done sentinel are skipped. Malformed JSON is
// returned as a *recordDecodeError so the caller can skip it without
// ending the stream.
func (s *recordStream) Next(ctx context.Context) (schema.StreamEvent, error) {
	for {
		if ctx.Err() != nil {
			return schema.StreamEvent{}, ctx.Err()
		}
		line, err := s.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return schema.StreamEvent{}, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err != nil {
				return schema.StreamEvent{}, err
			}
			continue
		}
		payload, ok := bytes.CutPrefix(line, []byte(dataPrefix))
		if !ok || len(bytes.TrimSpace(payload)) == 0 {
			if err != nil {
				return schema.StreamEvent{}, err
			}
			continue
		}
		payload = bytes.TrimSpace(payload)
		if string(payload) == doneSentinel {
			if err != nil {
				return schema.StreamEvent{}, err
			}
			continue
		}
		event, decodeErr := decodeRecord(payload)
		if decodeErr != nil {
			return schema.StreamEvent{}, &recordDecodeError{line: append([]byte(nil), payload...), err: decodeErr}
		}
		return event, nil
	}
}

func decodeRecord(payload []byte) (schema.StreamEvent, error) {
	var event schema.StreamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return schema.StreamEvent{}, err
	}
	event.Raw = append([]byte(nil), payload...)
	return event, nil
}
