package agents

import "strings"

// Kind identifies an executor variant.
type Kind string

const (
	KindPlanner        Kind = "planner"
	KindCoder          Kind = "coder"
	KindDebugger       Kind = "debugger"
	KindProjectManager Kind = "pm"
)

// kindSynonyms maps normalized agent names to kinds. Keys are lowercased
// with spaces, hyphens and underscores stripped.
var kindSynonyms = map[string]Kind{
	"planner":        KindPlanner,
	"plan":           KindPlanner,
	"planning":       KindPlanner,
	"architect":      KindPlanner,
	"analyst":        KindPlanner,
	"coder":          KindCoder,
	"code":           KindCoder,
	"coding":         KindCoder,
	"developer":      KindCoder,
	"dev":            KindCoder,
	"engineer":       KindCoder,
	"debugger":       KindDebugger,
	"debug":          KindDebugger,
	"tester":         KindDebugger,
	"testing":        KindDebugger,
	"qa":             KindDebugger,
	"pm":             KindProjectManager,
	"manager":        KindProjectManager,
	"projectmanager": KindProjectManager,
	"pmagent":        KindProjectManager,
}

// ParseKind resolves a free-form agent name to a Kind. Matching is case,
// space, hyphen and underscore insensitive. Unknown names map to the coder
// so a planner mislabeling never stalls the pipeline.
func ParseKind(name string) Kind {
	normalized := strings.ToLower(name)
	normalized = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(normalized)
	if kind, ok := kindSynonyms[normalized]; ok {
		return kind
	}
	return KindCoder
}

// Known reports whether the name resolves to a kind without the coder
// default kicking in.
func Known(name string) bool {
	normalized := strings.ToLower(name)
	normalized = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(normalized)
	_, ok := kindSynonyms[normalized]
	return ok
}
