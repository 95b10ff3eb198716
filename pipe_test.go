package stream

import (
	"os"
	"testing"
)

func TestIsProcessStdSink_RecognizesStdoutAndStderrByFd(t *testing.T) {
	if !isProcessStdSink(&ioWriterSink{w: os.Stdout}) {
		t.Fatalf("expected stdout sink to be recognized")
	}
	if !isProcessStdSink(&ioWriterSink{w: os.Stderr}) {
		t.Fatalf("expected stderr sink to be recognized")
	}
}

func TestIsProcessStdSink_FalseForRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stream-pipe-test")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	if isProcessStdSink(&ioWriterSink{w: f}) {
		t.Fatalf("regular file should not be recognized as stdout/stderr")
	}
}

func TestPipe_DefaultsEndFalseForStdoutSink(t *testing.T) {
	s := &Stream{events: newEventRegistry(), buf: newBuffer(ModeBytes), sched: newScheduler(false)}
	sink := &ioWriterSink{w: os.Stdout}

	// Mark the source as already ended so Pipe's immediate-end branch runs
	// rather than scheduling a deferred Resume against an incomplete Stream.
	s.emittedEnd = true
	s.Pipe(sink)
	// Had Pipe ended the sink, ioWriterSink.End would have closed os.Stdout.
	if _, err := os.Stdout.Stat(); err != nil {
		t.Fatalf("Pipe ended the stdout sink: %v", err)
	}
}
