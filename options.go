package stream

import "context"

// Mode selects the payload shape a Stream carries, fixed for its lifetime.
type Mode int

const (
	// ModeBytes carries contiguous byte slices; size metric is byte length.
	ModeBytes Mode = iota
	// ModeText carries decoded strings; size metric is character count.
	ModeText
	// ModeObject carries arbitrary values; size metric is item count.
	ModeObject
)

// config mirrors the teacher's Options/defaultOptions/Option(func(*Options))
// shape (code.hybscloud.com/framer/options.go) for construction-time
// settings.
type config struct {
	async          bool
	signal         context.Context
	encodingSet    bool
	encoding       string
	objectModeSet  bool
}

var defaultConfig = config{
	encoding: "utf-8",
}

// Option configures a Stream at construction time.
type Option func(*config)

// WithAsync defers all data/end emissions to the next turn of the stream's
// deferral queue instead of invoking them synchronously within Write/End.
func WithAsync() Option {
	return func(c *config) { c.async = true }
}

// WithSignal attaches an external cancellation token. If ctx is already
// done at construction, the stream aborts immediately. Otherwise, in async
// mode a watcher goroutine aborts the stream when ctx is done; in sync mode
// cancellation is only noticed the next time Write or Read is called.
func WithSignal(ctx context.Context) Option {
	return func(c *config) { c.signal = ctx }
}

// WithEncoding selects Text mode with the given encoding name. Only
// "utf-8" is implemented; see decoder.go. Mutually exclusive with
// WithObjectMode.
func WithEncoding(name string) Option {
	return func(c *config) {
		c.encodingSet = true
		c.encoding = name
	}
}

// WithObjectMode selects Object mode. Mutually exclusive with WithEncoding.
func WithObjectMode() Option {
	return func(c *config) { c.objectModeSet = true }
}

// writeConfig holds the optional arguments to Write, mirroring the spec's
// write(chunk, encoding?, cb?) signature as functional options since Go has
// no optional parameters.
type writeConfig struct {
	encoding string
	cb       func(error)
}

// WriteOption configures a single Write call.
type WriteOption func(*writeConfig)

// WithWriteEncoding sets the encoding a string chunk is declared to be in.
// Defaults to "utf-8".
func WithWriteEncoding(name string) WriteOption {
	return func(c *writeConfig) { c.encoding = name }
}

// WithWriteCallback registers a callback invoked once the write completes
// (synchronously in sync mode, on the next deferral-queue turn in async
// mode).
func WithWriteCallback(cb func(error)) WriteOption {
	return func(c *writeConfig) { c.cb = cb }
}

// endConfig holds the optional arguments to End, mirroring end(chunk?,
// encoding?, cb?).
type endConfig struct {
	chunk    any
	hasChunk bool
	encoding string
	cb       func()
}

// EndOption configures a single End call.
type EndOption func(*endConfig)

// WithEndChunk writes chunk as a final Write before the EOF signal.
func WithEndChunk(chunk any) EndOption {
	return func(c *endConfig) { c.chunk = chunk; c.hasChunk = true }
}

// WithEndEncoding sets the encoding of the chunk passed via WithEndChunk.
func WithEndEncoding(name string) EndOption {
	return func(c *endConfig) { c.encoding = name }
}

// WithEndCallback registers a one-shot handler for the end event.
func WithEndCallback(cb func()) EndOption {
	return func(c *endConfig) { c.cb = cb }
}

// PipeOptions configures Pipe.
type PipeOptions struct {
	// End, when true, calls dest.End() once the source emits end. Defaults
	// to true, except when dest resolves to the process's stdout/stderr
	// sink, where it defaults to false so a pipe never closes a shared
	// process stream.
	End bool
	// ProxyErrors, when true, forwards every error the source emits to the
	// destination via its ErrorReceiver interface, in addition to the
	// default error-events-only propagation.
	ProxyErrors bool
}

// PipeOption configures a single Pipe call.
type PipeOption func(*PipeOptions)

// WithPipeEnd overrides the end-propagation default for one Pipe call.
func WithPipeEnd(end bool) PipeOption {
	return func(o *PipeOptions) { o.End = end }
}

// WithProxyErrors enables error-proxying for one Pipe call.
func WithProxyErrors(proxy bool) PipeOption {
	return func(o *PipeOptions) { o.ProxyErrors = proxy }
}
