package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type importEdge struct {
	file string // module-relative, slash separated
	imp  string
}

// moduleImports parses every .go file under internal/ and returns the module
// path plus each (file, import) pair.
func moduleImports(t *testing.T) (string, []importEdge) {
	t.Helper()

	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}

	fset := token.NewFileSet()
	var edges []importEdge
	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || d.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			edges = append(edges, importEdge{file: filepath.ToSlash(rel), imp: imp})
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	return modulePath, edges
}

func TestImportBoundaries(t *testing.T) {
	modulePath, edges := moduleImports(t)

	var b strings.Builder
	for _, e := range edges {
		for _, bad := range disallowedImports(modulePath, layerFor(e.file)) {
			if e.imp == bad || strings.HasPrefix(e.imp, bad+"/") {
				fmt.Fprintf(&b, "- %s imports %q (layer %s may not import %q)\n", e.file, e.imp, layerFor(e.file), bad)
				break
			}
		}
	}
	if b.Len() > 0 {
		t.Fatal("import boundary violations:\n" + b.String())
	}
}

func TestClientsOnlyImportedByApp(t *testing.T) {
	modulePath, edges := moduleImports(t)
	clients := modulePath + "/internal/clients/"

	var b strings.Builder
	for _, e := range edges {
		if strings.HasPrefix(e.file, "internal/clients/") || strings.HasPrefix(e.file, "internal/app/") {
			continue
		}
		if strings.HasPrefix(e.imp, clients) {
			fmt.Fprintf(&b, "- %s imports %q\n", e.file, e.imp)
		}
	}
	if b.Len() > 0 {
		t.Fatal("internal/clients may only be wired from internal/app:\n" + b.String())
	}
}

func layerFor(rel string) string {
	for _, layer := range []string{"platform", "domain", "modules", "inference", "data", "services", "http"} {
		if strings.HasPrefix(rel, "internal/"+layer+"/") {
			return layer
		}
	}
	return ""
}

// disallowedImports lists package roots a layer must not depend on. Lower
// layers never reach up; only app sees everything.
func disallowedImports(modulePath, layer string) []string {
	in := func(pkgs ...string) []string {
		out := make([]string, len(pkgs))
		for i, p := range pkgs {
			out[i] = modulePath + "/internal/" + p
		}
		return out
	}
	switch layer {
	case "platform":
		return in("domain", "modules", "inference", "data", "services", "http", "app")
	case "domain":
		return in("modules", "inference", "data", "services", "http", "app")
	case "modules", "inference":
		return in("data", "services", "http", "app")
	case "data":
		return in("modules", "inference", "services", "http", "app")
	case "services":
		return in("http", "app")
	case "http":
		return in("app", "clients", "data/db")
	default:
		return nil
	}
}

func findModuleRoot(start string) (string, error) {
	for dir := start; ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "module "); ok {
			return strings.TrimSpace(rest), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module directive not found in %s", goModPath)
}
