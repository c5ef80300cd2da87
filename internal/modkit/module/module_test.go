package module

import (
	"testing"
)

// FooPort is a tiny test interface that our Ports() payloads can implement
type FooPort interface {
	Foo() int
}

type fooImpl struct{ v int }

func (f fooImpl) Foo() int { return f.v }

// fakeModule is a small module double for tests
type fakeModule struct {
	name  string
	ports any
}

func (m fakeModule) Name() string   { return m.name }
func (m fakeModule) Ports() PortSet { return m.ports }

func TestPortsOfNilPorts(t *testing.T) {
	t.Parallel()

	m := fakeModule{name: "nilPorts", ports: nil}
	if _, ok := PortsOf[FooPort](m); ok {
		t.Fatalf("expected ok=false when Ports() is nil")
	}
}

func TestPortsOfDirectInterfaceMatch(t *testing.T) {
	t.Parallel()

	want := fooImpl{v: 42}
	m := fakeModule{name: "direct", ports: FooPort(want)}

	got, ok := PortsOf[FooPort](m)
	if !ok {
		t.Fatalf("expected ok=true for direct interface match")
	}
	if got.Foo() != 42 {
		t.Fatalf("unexpected Foo value, got %d want 42", got.Foo())
	}
}

func TestPortsOfStructBundleExportedField(t *testing.T) {
	t.Parallel()

	type Ports struct {
		Foo FooPort
		Bar int
	}
	want := fooImpl{v: 7}
	m := fakeModule{
		name:  "bundle",
		ports: Ports{Foo: want, Bar: 1},
	}

	got, ok := PortsOf[FooPort](m)
	if !ok {
		t.Fatalf("expected ok=true when bundle has exported Foo field")
	}
	if got.Foo() != 7 {
		t.Fatalf("unexpected Foo value, got %d want 7", got.Foo())
	}
}

func TestMustPortsOfPanicsWhenMissing(t *testing.T) {
	t.Parallel()

	m := fakeModule{name: "empty", ports: struct{}{}}
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic for missing port")
		}
	}()
	_ = MustPortsOf[FooPort](m)
}

func TestRegistryRoundTrip(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register("scan", FooPort(fooImpl{v: 3}))

	got, ok := PortsAs[FooPort]("scan")
	if !ok {
		t.Fatalf("expected registered port set")
	}
	if got.Foo() != 3 {
		t.Fatalf("unexpected Foo value, got %d want 3", got.Foo())
	}

	if _, ok := PortsAs[FooPort]("absent"); ok {
		t.Fatalf("expected ok=false for unknown module name")
	}
}
