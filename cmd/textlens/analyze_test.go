package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeText(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func runAnalyze(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut strings.Builder
	code := runAnalyzeCommand(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunAnalyzeCommand_TextReport(t *testing.T) {
	setTestHome(t)
	path := writeText(t, "in.txt", "The cat saw the hat. The end!")

	code, out, errOut := runAnalyze(t, "", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	for _, want := range []string{"7 tokens", "Word Frequency", "the", "Entropy Analysis", "needs at least 100 words"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Sentiment") {
		t.Fatal("sentiment not selected by default")
	}
}

func TestRunAnalyzeCommand_JSONAllMethods(t *testing.T) {
	setTestHome(t)
	code, out, errOut := runAnalyze(t, "a b a", "-json", "-m", "all", "-")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	var res struct {
		TokenCount    int `json:"token_count"`
		WordFrequency []struct {
			Word  string `json:"word"`
			Count int    `json:"count"`
		} `json:"word_frequency"`
		Sentiment map[string]any   `json:"sentiment"`
		POS       map[string]any   `json:"pos"`
		Methods   []string         `json:"methods"`
		Entropy   []map[string]any `json:"entropy"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.TokenCount != 3 || len(res.WordFrequency) != 2 || res.WordFrequency[0].Word != "a" || res.WordFrequency[0].Count != 2 {
		t.Fatalf("unexpected results: %+v", res)
	}
	if res.Sentiment == nil || res.POS == nil {
		t.Fatal("placeholder results missing")
	}
	if len(res.Methods) != 4 {
		t.Fatalf("methods = %v", res.Methods)
	}
}

func TestRunAnalyzeCommand_Rejections(t *testing.T) {
	setTestHome(t)
	md := writeText(t, "notes.md", "# not txt")

	tests := []struct {
		name    string
		stdin   string
		args    []string
		code    int
		errPart string
	}{
		{name: "wrong extension", args: []string{md}, code: 1, errPart: "only .txt files are accepted"},
		{name: "missing file", args: []string{filepath.Join(t.TempDir(), "gone.txt")}, code: 1, errPart: "no file provided"},
		{name: "binary stdin", stdin: "a\x00b", args: []string{"-"}, code: 1, errPart: "not text"},
		{name: "no input", code: 2, errPart: "no input"},
		{name: "unknown method", args: []string{"-m", "syntax", "-"}, code: 2, errPart: "unknown"},
		{name: "bad format", args: []string{"-format", "gif", "-"}, code: 2},
		{name: "too many args", args: []string{"a.txt", "b.txt"}, code: 2, errPart: "usage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runAnalyze(t, tt.stdin, tt.args...)
			if code != tt.code {
				t.Fatalf("exit %d, want %d (%s)", code, tt.code, errOut)
			}
			if tt.errPart != "" && !strings.Contains(errOut, tt.errPart) {
				t.Fatalf("stderr %q missing %q", errOut, tt.errPart)
			}
		})
	}
}

func TestRunAnalyzeCommand_InputFileFromConfig(t *testing.T) {
	setTestHome(t)
	path := writeText(t, "configured.txt", "one two two")
	t.Setenv("TEXTLENS_INPUT", path)

	code, out, errOut := runAnalyze(t, "", "-m", "frequency")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "3 tokens") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestRunAnalyzeCommand_ChartDir(t *testing.T) {
	setTestHome(t)
	path := writeText(t, "long.txt", strings.Repeat("alpha beta gamma ", 50))
	dir := filepath.Join(t.TempDir(), "charts")

	code, _, errOut := runAnalyze(t, "", "-chart-dir", dir, path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	for _, name := range []string{"frequency.svg", "entropy.svg"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(data), "<svg") {
			t.Fatalf("%s is not svg", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "pos.svg")); !os.IsNotExist(err) {
		t.Fatalf("pos chart should be skipped, stat err = %v", err)
	}
	if !strings.Contains(errOut, "chart written") {
		t.Fatalf("stderr = %q", errOut)
	}
}
