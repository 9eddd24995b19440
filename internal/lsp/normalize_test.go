package lsp

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDecodeCompletionItems(t *testing.T) {
	bare := json.RawMessage(`[{"label":"Println","kind":3},{"label":"Printf","kind":3}]`)
	wrapped := json.RawMessage(`{"isIncomplete":false,"items":[{"label":"Println","kind":3},{"label":"Printf","kind":3}]}`)

	bareItems, err := decodeCompletionItems(bare)
	if err != nil {
		t.Fatalf("bare array: %v", err)
	}
	wrappedItems, err := decodeCompletionItems(wrapped)
	if err != nil {
		t.Fatalf("wrapped list: %v", err)
	}

	if !reflect.DeepEqual(bareItems, wrappedItems) {
		t.Errorf("shapes disagree:\nbare:    %+v\nwrapped: %+v", bareItems, wrappedItems)
	}
}

func TestDecodeCompletionItemsEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"null result", `null`, ErrEmptyResult},
		{"empty payload", ``, ErrEmptyResult},
		{"scalar", `42`, ErrInvalidResponse},
		{"object without items", `{"isIncomplete":false}`, ErrInvalidResponse},
		{"items not array", `{"items":"nope"}`, ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeCompletionItems(json.RawMessage(tt.raw))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeCompletionPrefersInsertText(t *testing.T) {
	c := normalizeCompletion(CompletionItem{
		Label:      "Println(a ...any)",
		InsertText: "Println",
		Kind:       CompletionItemKindFunction,
		Detail:     "func(a ...any) (n int, err error)",
	})
	if c.Name != "Println" {
		t.Errorf("Name = %q, want insert text", c.Name)
	}
	if c.Icon != IconFunction {
		t.Errorf("Icon = %q, want %q", c.Icon, IconFunction)
	}
	if c.Tooltip != "func(a ...any) (n int, err error)" {
		t.Errorf("Tooltip = %q", c.Tooltip)
	}

	c = normalizeCompletion(CompletionItem{Label: "value"})
	if c.Name != "value" {
		t.Errorf("Name = %q, want label fallback", c.Name)
	}
	if c.Icon != IconVariable {
		t.Errorf("Icon = %q, want variable fallback", c.Icon)
	}
}

func TestIconForKind(t *testing.T) {
	tests := []struct {
		kind CompletionItemKind
		want Icon
	}{
		{CompletionItemKindFile, IconPath},
		{CompletionItemKindClass, IconClass},
		{CompletionItemKindFunction, IconFunction},
		{CompletionItemKindVariable, IconVariable},
		{CompletionItemKindKeyword, IconKeyword},
		{CompletionItemKindSnippet, IconVariable},
		{0, IconVariable},
	}
	for _, tt := range tests {
		if got := iconForKind(tt.kind); got != tt.want {
			t.Errorf("iconForKind(%d) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestNormalizeCompletionsRanking(t *testing.T) {
	items := []CompletionItem{
		{Label: "append"},
		{Label: "print"},
		{Label: "printf"},
		{Label: "println"},
	}

	got := normalizeCompletions(items, "print", 10, true)
	if len(got) != 4 {
		t.Fatalf("got %d candidates, want 4", len(got))
	}
	if got[0].Name != "print" {
		t.Errorf("best match = %q, want \"print\"", got[0].Name)
	}
	if got[len(got)-1].Name != "append" {
		t.Errorf("worst match = %q, want \"append\"", got[len(got)-1].Name)
	}
}

func TestNormalizeCompletionsServerOrder(t *testing.T) {
	items := []CompletionItem{
		{Label: "zebra"},
		{Label: "print"},
	}
	got := normalizeCompletions(items, "print", 10, false)
	if got[0].Name != "zebra" {
		t.Errorf("fuzzy off should keep server order, got %q first", got[0].Name)
	}
}

func TestNormalizeCompletionsCapAndDedup(t *testing.T) {
	var items []CompletionItem
	for i := 0; i < 30; i++ {
		items = append(items, CompletionItem{Label: "x" + string(rune('a'+i%15))})
	}
	got := normalizeCompletions(items, "x", 10, true)
	if len(got) != 10 {
		t.Errorf("got %d candidates, want cap of 10", len(got))
	}

	seen := map[string]bool{}
	for _, c := range got {
		if seen[c.Name] {
			t.Errorf("duplicate candidate %q", c.Name)
		}
		seen[c.Name] = true
	}
}

func TestSimilarity(t *testing.T) {
	if s := similarity("print", "print"); s != 1 {
		t.Errorf("identical strings = %v, want 1", s)
	}
	if s := similarity("print", "zzzz"); s != 0 {
		t.Errorf("disjoint strings = %v, want 0", s)
	}
	if similarity("print", "println") <= similarity("print", "append") {
		t.Error("closer match should score higher")
	}
}

func TestNormalizeSignature(t *testing.T) {
	help := &SignatureHelp{
		Signatures: []SignatureInformation{
			{
				Label:         "open(file, mode='r')",
				Documentation: json.RawMessage(`{"kind":"markdown","value":"Open file."}`),
				Parameters: []ParameterInformation{
					{Label: json.RawMessage(`"file"`)},
					{Label: json.RawMessage(`[11, 19]`)},
				},
			},
		},
		ActiveSignature: 0,
		ActiveParameter: 1,
	}

	sig, ok := normalizeSignature(help, 7)
	if !ok {
		t.Fatal("expected a signature")
	}
	if sig.Label != "open(file, mode='r')" {
		t.Errorf("Label = %q", sig.Label)
	}
	if len(sig.Parameters) != 2 || sig.Parameters[0] != "file" || sig.Parameters[1] != "mode='r'" {
		t.Errorf("Parameters = %v", sig.Parameters)
	}
	if sig.Documentation != "Open file." {
		t.Errorf("Documentation = %q", sig.Documentation)
	}
	if sig.ActiveParameter != 1 {
		t.Errorf("ActiveParameter = %d", sig.ActiveParameter)
	}
	if sig.Column != 7 {
		t.Errorf("Column = %d", sig.Column)
	}
}

func TestNormalizeSignatureEmpty(t *testing.T) {
	if _, ok := normalizeSignature(nil, 0); ok {
		t.Error("nil help should not yield a signature")
	}
	if _, ok := normalizeSignature(&SignatureHelp{}, 0); ok {
		t.Error("no signatures should not yield a signature")
	}
}

func TestNormalizeSignatureClampsActive(t *testing.T) {
	help := &SignatureHelp{
		Signatures:      []SignatureInformation{{Label: "f(x)"}},
		ActiveSignature: 5,
	}
	sig, ok := normalizeSignature(help, 0)
	if !ok || sig.Label != "f(x)" {
		t.Errorf("out of range active signature should fall back to the first, got %+v ok=%v", sig, ok)
	}
}

func TestFlattenDocumentation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain string", `"docs"`, "docs"},
		{"markup content", `{"kind":"plaintext","value":"docs"}`, "docs"},
		{"missing", ``, ""},
		{"null", `null`, ""},
		{"object without value", `{"kind":"markdown"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flattenDocumentation(json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("flattenDocumentation(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeSymbolsFlat(t *testing.T) {
	raw := json.RawMessage(`[
		{"name":"Reader","kind":5,"location":{"uri":"file:///a.go","range":{"start":{"line":10,"character":0},"end":{"line":20,"character":1}}}},
		{"name":"Read","kind":6,"containerName":"Reader","location":{"uri":"file:///a.go","range":{"start":{"line":12,"character":1},"end":{"line":14,"character":2}}}}
	]`)

	symbols, err := normalizeSymbols(raw, nil)
	if err != nil {
		t.Fatalf("normalizeSymbols: %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("got %d symbols, want 2", len(symbols))
	}
	if symbols[0].Name != "Reader" || symbols[0].Kind != "Class" || symbols[0].Line != 10 {
		t.Errorf("symbol 0 = %+v", symbols[0])
	}
	if symbols[1].ContainerName != "Reader" {
		t.Errorf("symbol 1 container = %q, want Reader", symbols[1].ContainerName)
	}
}

func TestNormalizeSymbolsHierarchical(t *testing.T) {
	raw := json.RawMessage(`[
		{"name":"Reader","kind":5,
		 "range":{"start":{"line":10,"character":0},"end":{"line":20,"character":1}},
		 "selectionRange":{"start":{"line":10,"character":5},"end":{"line":10,"character":11}},
		 "children":[
			{"name":"Read","kind":6,
			 "range":{"start":{"line":12,"character":1},"end":{"line":14,"character":2}},
			 "selectionRange":{"start":{"line":12,"character":6},"end":{"line":12,"character":10}}}
		 ]}
	]`)

	symbols, err := normalizeSymbols(raw, nil)
	if err != nil {
		t.Fatalf("normalizeSymbols: %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("got %d symbols, want 2", len(symbols))
	}
	if symbols[0].ContainerName != "" {
		t.Errorf("root container = %q, want empty", symbols[0].ContainerName)
	}
	if symbols[1].Name != "Read" || symbols[1].ContainerName != "Reader" || symbols[1].Line != 12 {
		t.Errorf("child symbol = %+v", symbols[1])
	}
}

func TestNormalizeSymbolsKindFilter(t *testing.T) {
	raw := json.RawMessage(`[
		{"name":"Reader","kind":5,"location":{"uri":"file:///a.go","range":{"start":{"line":1,"character":0},"end":{"line":2,"character":0}}}},
		{"name":"count","kind":13,"location":{"uri":"file:///a.go","range":{"start":{"line":3,"character":0},"end":{"line":3,"character":5}}}}
	]`)

	symbols, err := normalizeSymbols(raw, map[string]bool{"Class": true})
	if err != nil {
		t.Fatalf("normalizeSymbols: %v", err)
	}
	if len(symbols) != 1 || symbols[0].Name != "Reader" {
		t.Errorf("filtered symbols = %+v, want only Reader", symbols)
	}
}

func TestNormalizeSymbolsEdgeCases(t *testing.T) {
	if _, err := normalizeSymbols(json.RawMessage(`null`), nil); !errors.Is(err, ErrEmptyResult) {
		t.Errorf("null err = %v, want ErrEmptyResult", err)
	}
	if _, err := normalizeSymbols(json.RawMessage(`{"bogus":1}`), nil); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("object err = %v, want ErrInvalidResponse", err)
	}
	symbols, err := normalizeSymbols(json.RawMessage(`[]`), nil)
	if err != nil || len(symbols) != 0 {
		t.Errorf("empty array = %v, %v; want empty slice", symbols, err)
	}
}
