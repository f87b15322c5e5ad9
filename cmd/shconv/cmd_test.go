package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/batchatco/go-native-shc/shc"
	"github.com/batchatco/go-native-shc/shc/api"
	"github.com/spf13/pflag"
)

const model = `META 2 2005.0 2005.5 2006.0
0 0 1.0 0.0 0.1 0.0
1 0 0.0 0.0 0.0 0.0
1 1 3.0 4.0 0.3 0.4
2 0 5.0 0.0 0.5 0.0
2 1 0.0 0.0 0.0 0.0
2 2 0.0 0.0 0.0 0.0
`

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRoot(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	tomlPath := writeFile(t, dir, "c.toml", "max-degree = 1\nerrors = true\ndialect = \"standard\"\n")
	yamlPath := writeFile(t, dir, "c.yaml", "max-degree: 1\nerrors: true\ndialect: standard\n")
	for _, path := range []string{tomlPath, yamlPath} {
		cfg, err := loadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		set := pflag.NewFlagSet("test", pflag.ContinueOnError)
		set.Int("max-degree", 0, "")
		set.Bool("errors", false, "")
		set.String("dialect", "auto", "")
		if err := set.Parse([]string{"--dialect", "gsm"}); err != nil {
			t.Fatal(err)
		}
		unused, err := applyConfig(set, cfg)
		if err != nil || len(unused) != 0 {
			t.Fatal(path, err, unused)
		}
		if n, _ := set.GetInt("max-degree"); n != 1 {
			t.Error(path, "max-degree", n)
		}
		if e, _ := set.GetBool("errors"); !e {
			t.Error(path, "errors")
		}
		// the command line wins
		if d, _ := set.GetString("dialect"); d != "gsm" {
			t.Error(path, "dialect", d)
		}
	}
	if _, err := loadConfig(writeFile(t, dir, "c.json", "{}")); err == nil {
		t.Error("json config accepted")
	}
	if _, err := loadConfig(writeFile(t, dir, "bad.toml", "max-degree = = 1\n")); err == nil {
		t.Error("bad toml accepted")
	}
}

func TestApplyConfigErrors(t *testing.T) {
	set := pflag.NewFlagSet("test", pflag.ContinueOnError)
	set.Int("max-degree", 0, "")
	unused, err := applyConfig(set, map[string]any{"other": 1, "more": 2})
	sort.Strings(unused)
	if err != nil || strings.Join(unused, ",") != "more,other" {
		t.Error(unused, err)
	}
	if _, err := applyConfig(set, map[string]any{"max-degree": "ten"}); err == nil {
		t.Error("bad value accepted")
	}
}

func TestDetectCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "model.txt", model)
	out, err := run(t, "detect", path, filepath.Join(dir, "other.gfc"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "standard\tnone") ||
		!strings.HasSuffix(lines[1], "icgem\tnone") {
		t.Errorf("got %q", out)
	}
	bad := writeFile(t, dir, "bad.txt", "1 2 3\n")
	if _, err := run(t, "detect", "--strict", bad); err == nil {
		t.Error("strict detection guessed")
	}
}

func TestInfoCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "model.txt", model)
	out, err := run(t, "info", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "nmaxfile") || !strings.Contains(out, "2005-07-02T12:00:00Z") {
		t.Errorf("got %q", out)
	}
	if strings.Contains(out, "degvar") {
		t.Error("degree variances without --degvar")
	}

	out, err = run(t, "info", "--degvar", path)
	if err != nil {
		t.Fatal(err)
	}
	// degree 1: 3^2 + 4^2, degree 2: 5^2
	for _, want := range []string{
		"degvar    0 1.000000000000e+00",
		"degvar    1 2.500000000000e+01",
		"degvar    2 2.500000000000e+01",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestDumpCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "model.txt", model)
	out, err := run(t, "dump", "-n", "1", "--errors", path)
	if err != nil {
		t.Fatal(err)
	}
	want := `0 0 C 1.000000000000e+00 1.000000000000e-01
1 0 C 0.000000000000e+00 0.000000000000e+00
1 1 C 3.000000000000e+00 3.000000000000e-01
1 1 S 4.000000000000e+00 4.000000000000e-01
`
	if out != want {
		t.Errorf("got %q", out)
	}
	out, err = run(t, "dump", "-n", "1", "--guide", "tmn", path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(out, "\n"); lines[2] != "1 1 C 3.000000000000e+00" ||
		lines[3] != "1 1 S 4.000000000000e+00" {
		t.Errorf("got %q", out)
	}
	out, err = run(t, "dump", "-n", "0", path)
	if err != nil || out != "0 0 C 1.000000000000e+00\n" {
		t.Errorf("degree 0: got %q, %v", out, err)
	}
	if _, err := run(t, "dump", "--guide", "mnt", path); err == nil {
		t.Error("bad guide accepted")
	}
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "model.txt", model)
	out := filepath.Join(dir, "model.gfc.gz")
	if _, err := run(t, "convert", "--errors", in, out); err != nil {
		t.Fatal(err)
	}
	res, err := shc.Read(out, shc.Options{WithErrors: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Set.Nmax() != 2 || !res.Set.HasSigmas() {
		t.Error("converted set", res.Set.Nmax(), res.Set.HasSigmas())
	}
	f, err := shc.Detect(out, true)
	if err != nil || f.Dialect != api.DialectExchange || !f.Compressed() {
		t.Error("converted format", f, err)
	}

	gsmOut := filepath.Join(dir, "model.gsm")
	if _, err := run(t, "convert", "--to", "gsm", "-n", "1", in, gsmOut); err != nil {
		t.Fatal(err)
	}
	res, err = shc.Read(gsmOut, shc.Options{Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Set.Nmax() != 1 || res.Set.HasSigmas() {
		t.Error("gsm set", res.Set.Nmax(), res.Set.HasSigmas())
	}
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "model.txt", model)
	cfg := writeFile(t, dir, "shconv.yaml", "max-degree: 1\nunknown-key: 3\n")
	out, err := run(t, "dump", "--config", cfg, path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out, "\n"); n != 4 {
		t.Errorf("expected 4 coefficients, got %q", out)
	}
	if _, err := run(t, "dump", "--log-level", "7", path); err == nil {
		t.Error("bad log level accepted")
	}
}
