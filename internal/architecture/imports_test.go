package architecture_test

import (
	"bufio"
	"errors"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Each rule forbids files under from (relative to internal/) from importing
// any internal package whose path starts with one of deny.
type rule struct {
	from string
	deny []string
}

var layerRules = []rule{
	{from: "platform/", deny: []string{"domain", "data/", "modules/", "services", "http", "temporalx", "app", "observability"}},
	{from: "domain/", deny: []string{"data/", "modules/", "services", "http", "temporalx", "observability", "app"}},
	{from: "data/", deny: []string{"modules/", "services", "http", "temporalx", "app"}},
	{from: "modules/", deny: []string{"services", "http", "temporalx", "app"}},
	{from: "services/", deny: []string{"http", "temporalx", "app"}},
	{from: "temporalx/", deny: []string{"http", "app"}},
	{from: "http/", deny: []string{"temporalx", "app"}},
}

type sourceFile struct {
	rel     string // relative to internal/, slash separated
	imports []string
}

func TestLayerImportRules(t *testing.T) {
	internal, files := scanInternal(t)
	for _, f := range files {
		for _, r := range layerRules {
			if !strings.HasPrefix(f.rel, r.from) {
				continue
			}
			for _, imp := range f.imports {
				for _, d := range r.deny {
					if strings.HasPrefix(imp, internal+d) {
						t.Errorf("%s imports %s (layer %s must not import %s)", f.rel, imp, strings.TrimSuffix(r.from, "/"), d)
					}
				}
			}
		}
	}
}

// Client shims are composed once in app; everything else receives the
// narrower interfaces app hands out.
func TestClientsOnlyWiredByApp(t *testing.T) {
	internal, files := scanInternal(t)
	for _, f := range files {
		if strings.HasPrefix(f.rel, "app/") || strings.HasPrefix(f.rel, "clients/") {
			continue
		}
		for _, imp := range f.imports {
			if strings.HasPrefix(imp, internal+"clients/") {
				t.Errorf("%s imports %s; only internal/app may", f.rel, imp)
			}
		}
	}
}

func scanInternal(t *testing.T) (string, []sourceFile) {
	t.Helper()
	root, err := moduleRoot()
	if err != nil {
		t.Fatalf("module root: %v", err)
	}
	mod, err := modulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("module path: %v", err)
	}
	dir := filepath.Join(root, "internal")
	fset := token.NewFileSet()
	var out []sourceFile
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		sf := sourceFile{rel: filepath.ToSlash(rel)}
		for _, spec := range f.Imports {
			if imp, err := strconv.Unquote(spec.Path.Value); err == nil {
				sf.imports = append(sf.imports, imp)
			}
		}
		out = append(out, sf)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return mod + "/internal/", out
}

func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found")
		}
		dir = parent
	}
}

func modulePath(goMod string) (string, error) {
	f, err := os.Open(goMod)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "module "); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`), nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", errors.New("no module directive in " + goMod)
}
