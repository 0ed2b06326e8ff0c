package secret

import "testing"

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	err := r.Register("static", func(_ map[string]any) (Provider, error) {
		return &staticProvider{name: "static"}, nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	t.Run("duplicate registration", func(t *testing.T) {
		err := r.Register("static", func(_ map[string]any) (Provider, error) { return nil, nil })
		if err == nil {
			t.Fatal("expected error for duplicate registration")
		}
	})

	t.Run("create registered", func(t *testing.T) {
		p, err := r.Create("static", nil)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if p.Name() != "static" {
			t.Errorf("Name() = %q", p.Name())
		}
	})

	t.Run("create unknown", func(t *testing.T) {
		if _, err := r.Create("nope", nil); err == nil {
			t.Fatal("expected error for unknown provider")
		}
	})

	t.Run("list", func(t *testing.T) {
		names := r.List()
		if len(names) != 1 || names[0] != "static" {
			t.Errorf("List() = %v", names)
		}
	})
}

func TestDefaultRegistry_BuiltIns(t *testing.T) {
	names := DefaultRegistry.List()
	want := map[string]bool{"env": false, "awssm": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("built-in provider %q not registered", n)
		}
	}
}
