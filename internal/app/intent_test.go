package app

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/MJE43/playdeck/internal/games"
)

func TestDecodeIntent(t *testing.T) {
	batch := uuid.New()
	tests := []struct {
		name string
		in   string
		want Intent
	}{
		{"increment", `{"type":"counter.increment"}`, CounterIncrement{}},
		{"divide", `{"type":"counter.divide_by_zero"}`, CounterDivideByZero{}},
		{"navigate by name", `{"type":"route.navigate","route":"games"}`, Navigate{Route: RouteGames}},
		{"navigate unknown", `{"type":"route.navigate","route":"lobby"}`, Navigate{Route: RouteNotFound}},
		{"url changed", `{"type":"route.url_changed","hash":"#/cats"}`, URLChanged{Hash: "#/cats"}},
		{"url changed empty", `{"type":"route.url_changed","hash":""}`, URLChanged{Hash: ""}},
		{"advance", `{"type":"gallery.advance"}`, GalleryAdvance{}},
		{"image loaded", `{"type":"gallery.image_loaded","batchId":"` + batch.String() + `","index":3}`, ImageLoaded{BatchID: batch, Index: 3}},
		{"rps", `{"type":"rps.play","choice":"Rock"}`, RPSPlay{Choice: games.Rock}},
		{"guess input", `{"type":"guess.input","value":"42"}`, GuessInput{Value: "42"}},
		{"guess input empty", `{"type":"guess.input"}`, GuessInput{}},
		{"guess submit", `{"type":"guess.submit"}`, GuessSubmit{}},
		{"guess pick", `{"type":"guess.pick","value":75}`, GuessPick{Value: 75}},
		{"memory select", `{"type":"memory.select","index":0}`, MemorySelect{Index: 0}},
		{"memory clear", `{"type":"memory.clear"}`, MemoryClear{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeIntent([]byte(tt.in))
			if err != nil {
				t.Fatalf("DecodeIntent: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeIntent = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeImageLoadedError(t *testing.T) {
	in, err := DecodeIntent([]byte(`{"type":"gallery.image_loaded","batchId":"` + uuid.NewString() + `","index":1,"error":"404"}`))
	if err != nil {
		t.Fatal(err)
	}
	il := in.(ImageLoaded)
	if il.Err == nil || il.Err.Error() != "404" {
		t.Errorf("Err = %v", il.Err)
	}
}

func TestDecodeIntentErrors(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  error
		field string
	}{
		{name: "unknown kind", in: `{"type":"counter.triple"}`, want: ErrUnknownIntent},
		{name: "missing type", in: `{}`, want: ErrUnknownIntent},
		{name: "bad json", in: `{"type":`, want: ErrInvalidIntent},
		{name: "unknown field", in: `{"type":"counter.reset","extra":1}`, want: ErrInvalidIntent},
		{name: "bad choice", in: `{"type":"rps.play","choice":"lizard"}`, want: games.ErrInvalidChoice},
		{name: "missing route", in: `{"type":"route.navigate"}`, want: ErrInvalidIntent, field: "route"},
		{name: "missing hash", in: `{"type":"route.url_changed"}`, want: ErrInvalidIntent, field: "hash"},
		{name: "missing index", in: `{"type":"memory.select"}`, want: ErrInvalidIntent, field: "index"},
		{name: "pick string", in: `{"type":"guess.pick","value":"x"}`, want: ErrInvalidIntent, field: "value"},
		{name: "pick missing", in: `{"type":"guess.pick"}`, want: ErrInvalidIntent, field: "value"},
		{name: "input number", in: `{"type":"guess.input","value":5}`, want: ErrInvalidIntent, field: "value"},
		{name: "bad batch", in: `{"type":"gallery.image_loaded","batchId":"x","index":0}`, want: ErrInvalidIntent, field: "batchId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeIntent([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if tt.field != "" {
				var fe *FieldError
				if !errors.As(err, &fe) || fe.Field != tt.field {
					t.Errorf("field error = %v, want field %s", err, tt.field)
				}
			}
		})
	}
}

func TestExternalDecodeRefusesInternalKinds(t *testing.T) {
	raw := []byte(`{"type":"gallery.image_loaded","batchId":"` + uuid.NewString() + `","index":0}`)
	if _, err := DecodeIntent(raw); err != nil {
		t.Fatalf("DecodeIntent: %v", err)
	}
	if _, err := DecodeExternalIntent(raw); !errors.Is(err, ErrInternalIntent) {
		t.Errorf("DecodeExternalIntent error = %v, want ErrInternalIntent", err)
	}
	idx := 0
	if _, err := (Envelope{Type: KindImageLoaded, BatchID: uuid.NewString(), Index: &idx}).ExternalIntent(); !errors.Is(err, ErrInternalIntent) {
		t.Errorf("ExternalIntent error = %v", err)
	}

	in, err := DecodeExternalIntent([]byte(`{"type":"counter.increment"}`))
	if err != nil || in.Kind() != KindCounterIncrement {
		t.Errorf("external counter.increment = %v, %v", in, err)
	}
	for _, kind := range IntentKinds() {
		if kind == KindImageLoaded {
			t.Errorf("IntentKinds advertises internal kind %s", kind)
		}
	}
}

func TestIntentKindsDecode(t *testing.T) {
	needsFields := map[string]bool{
		KindNavigate: true, KindURLChanged: true, KindImageLoaded: true,
		KindRPSPlay: true, KindGuessPick: true, KindMemorySelect: true,
	}
	for _, kind := range IntentKinds() {
		if needsFields[kind] {
			continue
		}
		in, err := Envelope{Type: kind}.Intent()
		if err != nil {
			t.Errorf("%s: %v", kind, err)
			continue
		}
		if in.Kind() != kind {
			t.Errorf("%s decoded to kind %s", kind, in.Kind())
		}
	}
}
