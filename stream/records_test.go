package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"pkt.systems/parley/schema"
)

func collectRecords(t *testing.T, input string) ([]schema.StreamEvent, []error) {
	t.Helper()
	records := newRecordStream(strings.NewReader(input))
	var events []schema.StreamEvent
	var errs []error
	for {
		event, err := records.Next(context.Background())
		if err != nil {
			var decodeErr *recordDecodeError
			if errors.As(err, &decodeErr) {
				errs = append(errs, err)
				continue
			}
			if errors.Is(err, io.EOF) {
				return events, errs
			}
			t.Fatalf("Next: %v", err)
		}
		events = append(events, event)
	}
}

func TestRecordStreamFramesDataLines(t *testing.T) {
	input := "data: {\"type\":\"content\",\"content\":\"Hi\"}\n" +
		"\n" +
		": comment line\n" +
		"data: {\"type\":\"done\"}\n"
	events, errs := collectRecords(t, input)
	if len(errs) != 0 {
		t.Fatalf("unexpected decode errors: %v", errs)
	}
	if len(events) != 2 {
		t.Fatalf("events %+v, want 2", events)
	}
	if events[0].Type != schema.EventContent || events[0].Content != "Hi" {
		t.Fatalf("first event %+v", events[0])
	}
	if events[1].Type != schema.EventDone {
		t.Fatalf("second event %+v", events[1])
	}
}

func TestRecordStreamDiscardsDoneSentinelUnparsed(t *testing.T) {
	input := "data: {\"type\":\"content\",\"content\":\"x\"}\ndata: [DONE]\n"
	events, errs := collectRecords(t, input)
	if len(errs) != 0 {
		t.Fatalf("sentinel must not be parsed: %v", errs)
	}
	if len(events) != 1 {
		t.Fatalf("events %+v, want only the content record", events)
	}
}

func TestRecordStreamReportsMalformedLines(t *testing.T) {
	input := "data: {not json\ndata: {\"type\":\"done\"}\n"
	events, errs := collectRecords(t, input)
	if len(errs) != 1 {
		t.Fatalf("expected one decode error, got %v", errs)
	}
	var decodeErr *recordDecodeError
	if !errors.As(errs[0], &decodeErr) || string(decodeErr.Line()) != "{not json" {
		t.Fatalf("decode error must carry the offending line, got %q", decodeErr.Line())
	}
	if len(events) != 1 || events[0].Type != schema.EventDone {
		t.Fatalf("stream must continue after a malformed line: %+v", events)
	}
}

func TestRecordStreamReassemblesSplitRecords(t *testing.T) {
	pr, pw := io.Pipe()
	records := newRecordStream(pr)
	go func() {
		_, _ = pw.Write([]byte("data: {\"type\":\"content\",\"co"))
		_, _ = pw.Write([]byte("ntent\":\"split\"}\nda"))
		_, _ = pw.Write([]byte("ta: {\"type\":\"done\"}\n"))
		_ = pw.Close()
	}()

	event, err := records.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if event.Content != "split" {
		t.Fatalf("reassembled content %q, want split", event.Content)
	}
	event, err = records.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if event.Type != schema.EventDone {
		t.Fatalf("event %+v, want done", event)
	}
}

func TestRecordStreamHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records := newRecordStream(strings.NewReader("data: {\"type\":\"done\"}\n"))
	if _, err := records.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
