package handler

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListTypes_IncludesBuiltins(t *testing.T) {
	types := ListTypes()
	want := map[string]bool{
		"static-response": false,
		"inject-headers":  false,
		"redirect":        false,
	}
	for _, typ := range types {
		if _, ok := want[typ]; ok {
			want[typ] = true
		}
	}
	for typ, seen := range want {
		if !seen {
			t.Errorf("built-in %q not registered", typ)
		}
	}
}

func TestResolve_UnknownHandler(t *testing.T) {
	if _, err := Resolve("no-such-handler", nil); err == nil {
		t.Fatal("expected an error for an unknown handler type")
	}
}

func TestResolve_EmptyReference(t *testing.T) {
	if _, err := Resolve("", nil); err == nil {
		t.Fatal("expected an error for an empty handler reference")
	}
}

func TestResolve_ScriptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greet.js")
	src := `exports.handler = (event) => {
		return {status: '204'};
	};`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := Resolve(path, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if _, ok := h.(*ScriptHandler); !ok {
		t.Fatalf("Resolve() returned %T, want *ScriptHandler", h)
	}
}

func TestResolve_MissingScriptFile(t *testing.T) {
	if _, err := Resolve(filepath.Join(t.TempDir(), "absent.js"), nil); err == nil {
		t.Fatal("expected an error for a missing script file")
	}
}

func TestSplitScriptRef(t *testing.T) {
	tests := []struct {
		ref        string
		wantFile   string
		wantExport string
		wantOK     bool
	}{
		{ref: "handlers/auth.js", wantFile: "handlers/auth.js", wantExport: "", wantOK: true},
		{ref: "handlers/auth.js#onRequest", wantFile: "handlers/auth.js", wantExport: "onRequest", wantOK: true},
		{ref: "static-response", wantOK: false},
		{ref: "handlers/auth.ts", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			file, export, ok := splitScriptRef(tt.ref)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if file != tt.wantFile || export != tt.wantExport {
				t.Errorf("got (%q, %q), want (%q, %q)", file, export, tt.wantFile, tt.wantExport)
			}
		})
	}
}

func TestRegisterFactory_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on duplicate registration")
		}
	}()
	RegisterFactory(Factory{
		Type:   "static-response",
		Create: newStaticResponse,
	})
}
