package errs

import (
	"errors"
	"testing"
)

func TestKindOfDispatchesTypedErrors(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Config("bad config"), KindConfig},
		{Connection(errors.New("boom"), "connect"), KindConnection},
		{Disconnection(errors.New("lost")), KindDisconnection},
		{Read(errors.New("x"), "read"), KindRead},
		{Process(errors.New("x"), "process"), KindProcess},
		{Timeout(errors.New("x")), KindTimeout},
		{EOF, KindEOF},
		{IO(errors.New("x"), "io"), KindIO},
		{Serialization(errors.New("x"), "ser"), KindSerialization},
		{Unknown(errors.New("x")), KindUnknown},
		{errors.New("plain"), KindUnknown},
		{nil, KindUnknown},
	}
	for _, c := range cases {
		if got := KindOf(c.err); got != c.want {
			t.Errorf("KindOf(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestIsEOFMatchesOnlyEOFSentinel(t *testing.T) {
	if !IsEOF(EOF) {
		t.Fatal("IsEOF(EOF) = false, want true")
	}
	if IsEOF(Disconnection(errors.New("x"))) {
		t.Fatal("IsEOF(Disconnection) = true, want false")
	}
}

func TestTypedWrapsAndUnwraps(t *testing.T) {
	inner := errors.New("inner")
	wrapped := Connection(inner, "connecting to %s", "broker")
	if !errors.Is(wrapped, inner) {
		t.Fatal("errors.Is did not find inner error through Unwrap")
	}
	if got := wrapped.Error(); got == "" {
		t.Fatal("Error() returned empty string")
	}
}

func TestIsDisconnectionAndIsConfig(t *testing.T) {
	if !IsDisconnection(Disconnection(errors.New("x"))) {
		t.Fatal("IsDisconnection failed to match")
	}
	if !IsConfig(Config("bad")) {
		t.Fatal("IsConfig failed to match")
	}
	if IsConfig(Disconnection(errors.New("x"))) {
		t.Fatal("IsConfig matched a non-config error")
	}
}
