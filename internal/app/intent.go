package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MJE43/playdeck/internal/games"
)

var (
	// ErrUnknownIntent is returned for an envelope whose type is not a known kind.
	ErrUnknownIntent = errors.New("app: unknown intent")
	// ErrInvalidIntent is returned for an envelope missing or mistyping a field.
	ErrInvalidIntent = errors.New("app: invalid intent")
	// ErrInternalIntent is returned when an outside caller sends a kind only
	// the runtime may produce, such as a load completion.
	ErrInternalIntent = errors.New("app: intent kind is internal")
)

// Intent is one user action. The set is closed: only this package's types
// implement it, and Container.Dispatch switches over all of them.
type Intent interface {
	Kind() string
	intent()
}

type (
	CounterIncrement    struct{}
	CounterDecrement    struct{}
	CounterReset        struct{}
	CounterDouble       struct{}
	CounterHalve        struct{}
	CounterDivideByZero struct{}

	// Navigate is a user-initiated route change.
	Navigate struct{ Route Route }
	// URLChanged reports an external fragment change; Hash is kept for not-found suggestions.
	URLChanged struct{ Hash string }

	GalleryAdvance struct{}
	// ImageLoaded reports one finished load. A non-nil Err is counted as loaded.
	ImageLoaded struct {
		BatchID uuid.UUID
		Index   int
		Err     error
	}

	RPSPlay struct{ Choice games.Choice }

	GuessInput  struct{ Value string }
	GuessSubmit struct{}
	GuessPick   struct{ Value int }
	GuessNew    struct{}

	MemoryStart  struct{}
	MemorySelect struct{ Index int }
	MemoryClear  struct{}
	MemoryReset  struct{}
)

const (
	KindCounterIncrement    = "counter.increment"
	KindCounterDecrement    = "counter.decrement"
	KindCounterReset        = "counter.reset"
	KindCounterDouble       = "counter.double"
	KindCounterHalve        = "counter.halve"
	KindCounterDivideByZero = "counter.divide_by_zero"
	KindNavigate            = "route.navigate"
	KindURLChanged          = "route.url_changed"
	KindGalleryAdvance      = "gallery.advance"
	KindImageLoaded         = "gallery.image_loaded"
	KindRPSPlay             = "rps.play"
	KindGuessInput          = "guess.input"
	KindGuessSubmit         = "guess.submit"
	KindGuessPick           = "guess.pick"
	KindGuessNew            = "guess.new"
	KindMemoryStart         = "memory.start"
	KindMemorySelect        = "memory.select"
	KindMemoryClear         = "memory.clear"
	KindMemoryReset         = "memory.reset"
)

func (CounterIncrement) Kind() string    { return KindCounterIncrement }
func (CounterDecrement) Kind() string    { return KindCounterDecrement }
func (CounterReset) Kind() string        { return KindCounterReset }
func (CounterDouble) Kind() string       { return KindCounterDouble }
func (CounterHalve) Kind() string        { return KindCounterHalve }
func (CounterDivideByZero) Kind() string { return KindCounterDivideByZero }
func (Navigate) Kind() string            { return KindNavigate }
func (URLChanged) Kind() string          { return KindURLChanged }
func (GalleryAdvance) Kind() string      { return KindGalleryAdvance }
func (ImageLoaded) Kind() string         { return KindImageLoaded }
func (RPSPlay) Kind() string             { return KindRPSPlay }
func (GuessInput) Kind() string          { return KindGuessInput }
func (GuessSubmit) Kind() string         { return KindGuessSubmit }
func (GuessPick) Kind() string           { return KindGuessPick }
func (GuessNew) Kind() string            { return KindGuessNew }
func (MemoryStart) Kind() string         { return KindMemoryStart }
func (MemorySelect) Kind() string        { return KindMemorySelect }
func (MemoryClear) Kind() string         { return KindMemoryClear }
func (MemoryReset) Kind() string         { return KindMemoryReset }

func (CounterIncrement) intent()    {}
func (CounterDecrement) intent()    {}
func (CounterReset) intent()        {}
func (CounterDouble) intent()       {}
func (CounterHalve) intent()        {}
func (CounterDivideByZero) intent() {}
func (Navigate) intent()            {}
func (URLChanged) intent()          {}
func (GalleryAdvance) intent()      {}
func (ImageLoaded) intent()         {}
func (RPSPlay) intent()             {}
func (GuessInput) intent()          {}
func (GuessSubmit) intent()         {}
func (GuessPick) intent()           {}
func (GuessNew) intent()            {}
func (MemoryStart) intent()         {}
func (MemorySelect) intent()        {}
func (MemoryClear) intent()         {}
func (MemoryReset) intent()         {}

// Envelope is the wire form of an intent: {"type": kind, ...fields}.
type Envelope struct {
	Type    string          `json:"type"`
	Route   string          `json:"route,omitempty"`
	Hash    *string         `json:"hash,omitempty"`
	Choice  string          `json:"choice,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Index   *int            `json:"index,omitempty"`
	BatchID string          `json:"batchId,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// FieldError names the envelope field that failed to decode.
type FieldError struct {
	Kind  string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %q: %v", e.Kind, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(kind, field, msg string) error {
	return &FieldError{Kind: kind, Field: field, Err: fmt.Errorf("%w: %s", ErrInvalidIntent, msg)}
}

// DecodeIntent parses one JSON envelope.
func DecodeIntent(data []byte) (Intent, error) {
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	return env.Intent()
}

// DecodeExternalIntent is DecodeIntent for callers outside the runtime:
// HTTP, WebSocket, bindings and scripts. Internal kinds are refused.
func DecodeExternalIntent(data []byte) (Intent, error) {
	in, err := DecodeIntent(data)
	if err != nil {
		return nil, err
	}
	return external(in)
}

// ExternalIntent is Intent with internal kinds refused.
func (env Envelope) ExternalIntent() (Intent, error) {
	in, err := env.Intent()
	if err != nil {
		return nil, err
	}
	return external(in)
}

func external(in Intent) (Intent, error) {
	if isInternal(in.Kind()) {
		return nil, fmt.Errorf("%w: %q", ErrInternalIntent, in.Kind())
	}
	return in, nil
}

func isInternal(kind string) bool { return kind == KindImageLoaded }

// Intent converts the envelope into its typed intent.
func (env Envelope) Intent() (Intent, error) {
	kind := strings.TrimSpace(env.Type)
	switch kind {
	case KindCounterIncrement:
		return CounterIncrement{}, nil
	case KindCounterDecrement:
		return CounterDecrement{}, nil
	case KindCounterReset:
		return CounterReset{}, nil
	case KindCounterDouble:
		return CounterDouble{}, nil
	case KindCounterHalve:
		return CounterHalve{}, nil
	case KindCounterDivideByZero:
		return CounterDivideByZero{}, nil

	case KindNavigate:
		if env.Route == "" {
			return nil, fieldErr(kind, "route", "required")
		}
		return Navigate{Route: ParseRoute(env.Route)}, nil
	case KindURLChanged:
		if env.Hash == nil {
			return nil, fieldErr(kind, "hash", "required")
		}
		return URLChanged{Hash: *env.Hash}, nil

	case KindGalleryAdvance:
		return GalleryAdvance{}, nil
	case KindImageLoaded:
		id, err := uuid.Parse(env.BatchID)
		if err != nil {
			return nil, fieldErr(kind, "batchId", err.Error())
		}
		if env.Index == nil {
			return nil, fieldErr(kind, "index", "required")
		}
		in := ImageLoaded{BatchID: id, Index: *env.Index}
		if env.Error != "" {
			in.Err = errors.New(env.Error)
		}
		return in, nil

	case KindRPSPlay:
		c, err := games.ParseChoice(env.Choice)
		if err != nil {
			return nil, err
		}
		return RPSPlay{Choice: c}, nil

	case KindGuessInput:
		var s string
		if len(env.Value) > 0 {
			if err := json.Unmarshal(env.Value, &s); err != nil {
				return nil, fieldErr(kind, "value", "must be a string")
			}
		}
		return GuessInput{Value: s}, nil
	case KindGuessSubmit:
		return GuessSubmit{}, nil
	case KindGuessPick:
		var n int
		if len(env.Value) == 0 {
			return nil, fieldErr(kind, "value", "required")
		}
		if err := json.Unmarshal(env.Value, &n); err != nil {
			return nil, fieldErr(kind, "value", "must be an integer")
		}
		return GuessPick{Value: n}, nil
	case KindGuessNew:
		return GuessNew{}, nil

	case KindMemoryStart:
		return MemoryStart{}, nil
	case KindMemorySelect:
		if env.Index == nil {
			return nil, fieldErr(kind, "index", "required")
		}
		return MemorySelect{Index: *env.Index}, nil
	case KindMemoryClear:
		return MemoryClear{}, nil
	case KindMemoryReset:
		return MemoryReset{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, env.Type)
}

// IntentKinds lists every kind DecodeExternalIntent accepts.
func IntentKinds() []string {
	return []string{
		KindCounterIncrement, KindCounterDecrement, KindCounterReset,
		KindCounterDouble, KindCounterHalve, KindCounterDivideByZero,
		KindNavigate, KindURLChanged,
		KindGalleryAdvance,
		KindRPSPlay,
		KindGuessInput, KindGuessSubmit, KindGuessPick, KindGuessNew,
		KindMemoryStart, KindMemorySelect, KindMemoryClear, KindMemoryReset,
	}
}
