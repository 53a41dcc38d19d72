package message

import (
	"sync/atomic"
	"testing"
)

func TestBatchBinaryLen(t *testing.T) {
	b := NewBinary([][]byte{[]byte("a"), []byte("b"), []byte("c")})
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	if b.IsColumnar() {
		t.Fatalf("binary batch reported as columnar")
	}
}

func TestBatchEmptyIsLegal(t *testing.T) {
	b := NewBinary(nil)
	if !b.IsEmpty() {
		t.Fatalf("expected empty batch")
	}
}

func TestToColumnarRoundTrip(t *testing.T) {
	b := NewBinary([][]byte{
		[]byte(`{"id":1,"name":"a"}`),
		[]byte(`{"id":2,"name":"b"}`),
	})
	col, err := b.ToColumnar()
	if err != nil {
		t.Fatalf("ToColumnar: %v", err)
	}
	if col.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", col.Len())
	}
	idCol, ok := col.Column("id")
	if !ok {
		t.Fatalf("missing id column")
	}
	if idCol.Values[0].(float64) != 1 {
		t.Fatalf("id[0] = %v, want 1", idCol.Values[0])
	}

	back, err := col.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if back.Len() != 2 {
		t.Fatalf("round-trip Len() = %d, want 2", back.Len())
	}
}

func TestConcatIncompatibleSchemas(t *testing.T) {
	a, _ := NewColumnar(Schema{Fields: []Field{{Name: "x", Type: ColumnInt64}}},
		[]Column{{Field: Field{Name: "x", Type: ColumnInt64}, Values: []any{int64(1)}}})
	b, _ := NewColumnar(Schema{Fields: []Field{{Name: "y", Type: ColumnInt64}}},
		[]Column{{Field: Field{Name: "y", Type: ColumnInt64}, Values: []any{int64(2)}}})

	if _, err := Concat([]Batch{a, b}); err == nil {
		t.Fatalf("expected error concatenating incompatible schemas")
	}
}

func TestConcatBinary(t *testing.T) {
	a := NewBinary([][]byte{[]byte("a")})
	b := NewBinary([][]byte{[]byte("b"), []byte("c")})
	merged, err := Concat([]Batch{a, b})
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if merged.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", merged.Len())
	}
}

func TestFanOutAcksAllExactlyOnce(t *testing.T) {
	var n int32
	var acks []Ack
	for i := 0; i < 4; i++ {
		acks = append(acks, AckFunc(func() { atomic.AddInt32(&n, 1) }))
	}
	fan := FanOut(acks...)
	fan.Ack()
	fan.Ack() // idempotent
	if got := atomic.LoadInt32(&n); got != 4 {
		t.Fatalf("fan-out acked %d times, want 4", got)
	}
}

func TestSharedReleasesOnce(t *testing.T) {
	var n int32
	s := NewShared(AckFunc(func() { atomic.AddInt32(&n, 1) }))
	s.Release(false)
	s.Release(true)
	s.Release(true)
	if got := atomic.LoadInt32(&n); got != 1 {
		t.Fatalf("shared ack fired %d times, want 1", got)
	}
}

func TestNoopAck(t *testing.T) {
	Noop.Ack() // must not panic
}
