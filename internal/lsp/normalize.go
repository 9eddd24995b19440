package lsp

import (
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"
)

// Icon is the closed set of UI icon categories a completion candidate maps
// to. Unmapped completion kinds fall back to IconVariable.
type Icon string

const (
	IconPath     Icon = "path"
	IconClass    Icon = "code-class"
	IconFunction Icon = "code-function"
	IconVariable Icon = "code-variable"
	IconKeyword  Icon = "quickopen"
)

var completionIcons = map[CompletionItemKind]Icon{
	CompletionItemKindFile:     IconPath,
	CompletionItemKindClass:    IconClass,
	CompletionItemKindFunction: IconFunction,
	CompletionItemKindVariable: IconVariable,
	CompletionItemKindKeyword:  IconKeyword,
}

// iconForKind maps a completion kind to its UI icon category.
func iconForKind(kind CompletionItemKind) Icon {
	if icon, ok := completionIcons[kind]; ok {
		return icon
	}
	return IconVariable
}

// CompletionCandidate is the caller-facing completion record.
type CompletionCandidate struct {
	Name    string `json:"name"`
	Icon    Icon   `json:"icon"`
	Tooltip string `json:"tooltip"`
}

// Signature is the caller-facing calltip record. A zero Signature means
// "no active signature": the caller hides the tooltip rather than treating
// it as an error.
type Signature struct {
	Label           string   `json:"label"`
	Parameters      []string `json:"parameters"`
	Documentation   string   `json:"documentation"`
	ActiveParameter int      `json:"activeParameter"`
	Column          int      `json:"column"`
}

// Symbol is the caller-facing document symbol record.
type Symbol struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	Line          int    `json:"line"`
	ContainerName string `json:"containerName"`
}

// decodeCompletionItems flattens a completion response to a plain item list.
// The TypeScript server returns the items directly as an array; most other
// servers wrap them in an object with an items field.
func decodeCompletionItems(raw json.RawMessage) ([]CompletionItem, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyResult
	}

	root := gjson.ParseBytes(raw)
	var itemsRaw string
	switch {
	case root.Type == gjson.Null:
		return nil, ErrEmptyResult
	case root.IsArray():
		itemsRaw = root.Raw
	case root.IsObject():
		items := root.Get("items")
		if !items.Exists() || !items.IsArray() {
			return nil, ErrInvalidResponse
		}
		itemsRaw = items.Raw
	default:
		return nil, ErrInvalidResponse
	}

	var items []CompletionItem
	if err := json.Unmarshal([]byte(itemsRaw), &items); err != nil {
		return nil, ErrInvalidResponse
	}
	return items, nil
}

// normalizeCompletion converts a raw item into a candidate. The label tends
// to include decoration such as parameter lists, so the insert text wins
// when present.
func normalizeCompletion(item CompletionItem) CompletionCandidate {
	name := item.InsertText
	if name == "" {
		name = item.Label
	}
	return CompletionCandidate{
		Name:    name,
		Icon:    iconForKind(item.Kind),
		Tooltip: item.Detail,
	}
}

// normalizeCompletions converts and optionally re-ranks a completion
// response against the in-progress prefix, capped at max candidates. With
// fuzzy off, server order is preserved.
func normalizeCompletions(items []CompletionItem, prefix string, max int, fuzzy bool) []CompletionCandidate {
	seen := make(map[string]bool, len(items))
	candidates := make([]CompletionCandidate, 0, len(items))
	for _, item := range items {
		c := normalizeCompletion(item)
		if c.Name == "" || seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		candidates = append(candidates, c)
	}

	if fuzzy {
		sort.SliceStable(candidates, func(i, j int) bool {
			return similarity(prefix, candidates[i].Name) > similarity(prefix, candidates[j].Name)
		})
	}

	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	return candidates
}

// similarity scores how closely two strings match, as twice the length of
// their longest common subsequence over their combined length. Matching is
// case-sensitive.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// normalizeSignature extracts the active signature from a raw signature help
// response, flattening documentation and parameter labels. The second return
// is false when there is no active signature.
func normalizeSignature(help *SignatureHelp, column int) (Signature, bool) {
	if help == nil || len(help.Signatures) == 0 {
		return Signature{}, false
	}

	active := help.ActiveSignature
	if active < 0 || active >= len(help.Signatures) {
		active = 0
	}
	info := help.Signatures[active]

	params := make([]string, 0, len(info.Parameters))
	for _, p := range info.Parameters {
		params = append(params, parameterLabel(info.Label, p.Label))
	}

	return Signature{
		Label:           info.Label,
		Parameters:      params,
		Documentation:   flattenDocumentation(info.Documentation),
		ActiveParameter: help.ActiveParameter,
		Column:          column,
	}, true
}

// parameterLabel renders a parameter label that may be a string or a
// [start, end) offset pair into the signature label.
func parameterLabel(sigLabel string, raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	v := gjson.ParseBytes(raw)
	switch {
	case v.Type == gjson.String:
		return v.Str
	case v.IsArray():
		bounds := v.Array()
		if len(bounds) == 2 {
			start, end := int(bounds[0].Int()), int(bounds[1].Int())
			if start >= 0 && end >= start && end <= len(sigLabel) {
				return sigLabel[start:end]
			}
		}
	}
	return ""
}

// flattenDocumentation reduces documentation that may be a plain string or a
// {value, format} structure to a string, defaulting to empty.
func flattenDocumentation(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	v := gjson.ParseBytes(raw)
	switch {
	case v.Type == gjson.String:
		return v.Str
	case v.IsObject():
		if value := v.Get("value"); value.Type == gjson.String {
			return value.Str
		}
	}
	return ""
}

// normalizeSymbols flattens a document symbol response, which may use the
// flat SymbolInformation form or the hierarchical DocumentSymbol form, into
// caller-facing records filtered to the allowed kind names. An empty filter
// admits every kind.
func normalizeSymbols(raw json.RawMessage, allowed map[string]bool) ([]Symbol, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyResult
	}

	root := gjson.ParseBytes(raw)
	if root.Type == gjson.Null {
		return nil, ErrEmptyResult
	}
	if !root.IsArray() {
		return nil, ErrInvalidResponse
	}

	elems := root.Array()
	if len(elems) == 0 {
		return []Symbol{}, nil
	}

	var out []Symbol
	if elems[0].Get("location").Exists() {
		var infos []SymbolInformation
		if err := json.Unmarshal([]byte(root.Raw), &infos); err != nil {
			return nil, ErrInvalidResponse
		}
		for _, s := range infos {
			if !kindAllowed(s.Kind, allowed) {
				continue
			}
			out = append(out, Symbol{
				Name:          s.Name,
				Kind:          s.Kind.String(),
				Line:          s.Location.Range.Start.Line,
				ContainerName: s.ContainerName,
			})
		}
		return out, nil
	}

	var docSymbols []DocumentSymbol
	if err := json.Unmarshal([]byte(root.Raw), &docSymbols); err != nil {
		return nil, ErrInvalidResponse
	}
	out = flattenDocumentSymbols(docSymbols, "", allowed, out)
	return out, nil
}

// flattenDocumentSymbols walks the symbol tree depth-first, recording each
// parent's name as its children's container.
func flattenDocumentSymbols(symbols []DocumentSymbol, container string, allowed map[string]bool, out []Symbol) []Symbol {
	for _, s := range symbols {
		if kindAllowed(s.Kind, allowed) {
			out = append(out, Symbol{
				Name:          s.Name,
				Kind:          s.Kind.String(),
				Line:          s.Range.Start.Line,
				ContainerName: container,
			})
		}
		out = flattenDocumentSymbols(s.Children, s.Name, allowed, out)
	}
	return out
}

func kindAllowed(kind SymbolKind, allowed map[string]bool) bool {
	return len(allowed) == 0 || allowed[kind.String()]
}
