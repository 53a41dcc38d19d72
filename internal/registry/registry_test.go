package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/ark-flow/arkflow/internal/component"
)

type fakeDecoder struct{ err error }

func (d fakeDecoder) Decode(v any) error { return d.err }

func TestRegisterAndBuild(t *testing.T) {
	r := New[int]()
	if err := r.Register("answer", func(component.Decoder) (int, error) { return 42, nil }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := r.Build("answer", fakeDecoder{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got != 42 {
		t.Fatalf("Build returned %d, want 42", got)
	}
}

func TestRegisterRejectsDuplicateTag(t *testing.T) {
	r := New[int]()
	b := func(component.Decoder) (int, error) { return 1, nil }
	if err := r.Register("dup", b); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register("dup", b); err == nil {
		t.Fatal("expected error on duplicate registration")
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := New[int]()
	b := func(component.Decoder) (int, error) { return 1, nil }
	r.MustRegister("dup", b)

	defer func() {
		if recover() == nil {
			t.Fatal("expected MustRegister to panic on duplicate tag")
		}
	}()
	r.MustRegister("dup", b)
}

func TestBuildUnknownTagListsKnownTags(t *testing.T) {
	r := New[int]()
	r.MustRegister("a", func(component.Decoder) (int, error) { return 1, nil })
	r.MustRegister("b", func(component.Decoder) (int, error) { return 2, nil })

	_, err := r.Build("c", fakeDecoder{})
	if err == nil {
		t.Fatal("expected error for unknown type tag")
	}
	if !strings.Contains(err.Error(), "[a b]") {
		t.Fatalf("error %q does not list the known tags [a b]", err)
	}
}

func TestBuildPropagatesBuilderError(t *testing.T) {
	r := New[int]()
	wantErr := errors.New("bad config")
	r.MustRegister("broken", func(component.Decoder) (int, error) { return 0, wantErr })

	_, err := r.Build("broken", fakeDecoder{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Build err = %v, want %v", err, wantErr)
	}
}
