package resp3

import "testing"

func TestPushFraming(t *testing.T) {
	r := NewRequest()
	r.Push("PING")
	got := string(r.Bytes())
	want := "*1\r\n$4\r\nPING\r\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if r.NumCommands() != 1 {
		t.Fatalf("expected 1 tag, got %d", r.NumCommands())
	}
}

func TestPushBinarySafeArgs(t *testing.T) {
	r := NewRequest()
	r.Push("SET", "key", []byte("embedded\r\nbytes"))
	got := string(r.Bytes())
	want := "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$15\r\nembedded\r\nbytes\r\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestPushRangeEmptyIsContractViolation(t *testing.T) {
	r := NewRequest()
	_, err := r.PushRange("MSET", nil)
	if err == nil {
		t.Fatal("expected error on empty range")
	}
}

func TestPushRangePairs(t *testing.T) {
	r := NewRequest()
	_, err := r.PushRange("MSET", []Elem{
		Pair{Key: "a", Value: "1"},
		Pair{Key: "b", Value: "2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := string(r.Bytes())
	want := "*5\r\n$4\r\nMSET\r\n$1\r\na\r\n$1\r\n1\r\n$1\r\nb\r\n$1\r\n2\r\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestPushKeyedRange(t *testing.T) {
	r := NewRequest()
	r.PushKeyedRange("HSET", "myhash", []Elem{
		Pair{Key: "f1", Value: "v1"},
	})
	got := string(r.Bytes())
	want := "*4\r\n$4\r\nHSET\r\n$6\r\nmyhash\r\n$2\r\nf1\r\n$2\r\nv1\r\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestConfigDefaults(t *testing.T) {
	r := NewRequest()
	if !r.Config().Coalesce {
		t.Fatal("expected coalesce default true")
	}
	if r.Config().CancelIfUnresponsive || r.Config().CancelIfNotConnected {
		t.Fatal("expected cancel flags default false")
	}
}

func TestMultipleCommandsPipeline(t *testing.T) {
	r := NewRequest()
	r.Push("PING")
	r.Push("PING")
	if r.NumCommands() != 2 {
		t.Fatalf("expected 2 tags, got %d", r.NumCommands())
	}
	tags := r.Tags()
	if tags[0] == tags[1] {
		t.Fatal("expected distinct tags")
	}
}
