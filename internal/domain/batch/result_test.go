package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK("img-1")
	if r.ID() != "img-1" || !r.OK() || r.Err() != nil {
		t.Errorf("NewOK = %+v", r)
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("bad position")
	r := NewError("img-2", err)
	if r.ID() != "img-2" || r.OK() || r.Status() != StatusError {
		t.Errorf("NewError = %+v", r)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

func TestTallyAndFirstError(t *testing.T) {
	first := errors.New("first")
	results := []Result{
		NewOK("a"),
		NewError("b", first),
		NewOK("c"),
		NewError("d", errors.New("second")),
	}
	if ok, failed := Tally(results); ok != 2 || failed != 2 {
		t.Errorf("Tally = %d, %d", ok, failed)
	}
	if err := FirstError(results); !errors.Is(err, first) {
		t.Errorf("FirstError = %v", err)
	}
	if err := FirstError(results[:1]); err != nil {
		t.Errorf("FirstError(all ok) = %v", err)
	}
	if ok, failed := Tally(nil); ok != 0 || failed != 0 {
		t.Errorf("Tally(nil) = %d, %d", ok, failed)
	}
}
