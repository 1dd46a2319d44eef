package app

import (
	"testing"
)

func TestSetTokenOnce(t *testing.T) {
	sc := NewSessionContext()
	if err := sc.SetToken("tok-1"); err != nil {
		t.Fatal(err)
	}
	if err := sc.SetToken("tok-2"); err != ErrTokenAlreadySet {
		t.Fatalf("err = %v, want ErrTokenAlreadySet", err)
	}
	if sc.Token() != "tok-1" {
		t.Fatalf("token = %q", sc.Token())
	}
}

func TestContextIDStable(t *testing.T) {
	sc := NewSessionContext()
	if sc.ContextID() == "" {
		t.Fatal("empty context id")
	}
	if sc.ContextID() != sc.ContextID() {
		t.Fatal("context id not stable")
	}
	if sc.ContextID() == NewSessionContext().ContextID() {
		t.Fatal("context ids collide across instances")
	}
}

func TestNextSequenceMonotonic(t *testing.T) {
	sc := NewSessionContext()
	sc.SetSession("s-1")
	prev := uint64(0)
	for i := 0; i < 1000; i++ {
		n := sc.NextSequence()
		if n <= prev {
			t.Fatalf("sequence %d after %d", n, prev)
		}
		prev = n
	}
	if prev != 1000 {
		t.Fatalf("final sequence = %d, want 1000", prev)
	}
}

func TestSequenceResetsPerSession(t *testing.T) {
	sc := NewSessionContext()
	sc.SetSession("s-1")
	sc.NextSequence()
	sc.NextSequence()

	sc.SetSession("s-2")
	if n := sc.NextSequence(); n != 1 {
		t.Fatalf("sequence after new session = %d, want 1", n)
	}
}

func TestPairConsistentRead(t *testing.T) {
	sc := NewSessionContext()
	sc.SetGroup("g-1")
	sc.SetSession("s-1")
	g, s := sc.Pair()
	if g != "g-1" || s != "s-1" {
		t.Fatalf("pair = (%q,%q)", g, s)
	}

	sc.ClearSession()
	g, s = sc.Pair()
	if g != "" || s != "" {
		t.Fatalf("pair after clear = (%q,%q)", g, s)
	}
}
