package agents

import (
	"encoding/json"
	"regexp"
	"strings"
)

// CodePayload is the structured shape the coder expects from the model.
type CodePayload struct {
	Filename    string `json:"filename"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CodeParser extracts a CodePayload from raw model output. Output rarely
// matches the requested format exactly, so parsing runs as a cascade:
// strict delimiter format first, then a loose JSON scan, then per-field
// regex extraction. Each tier returns ok=false instead of an error so the
// caller can decide when to give up and use the deterministic fallback.
type CodeParser struct{}

var (
	strictFilenameRe = regexp.MustCompile(`FILENAME\|\|\|(.*?)\|\|\|`)
	strictDescRe     = regexp.MustCompile(`DESCRIPTION\|\|\|(.*?)\|\|\|`)
	strictCodeRe     = regexp.MustCompile(`(?s)CODE\|\|\|(.*?)\|\|\|END`)

	jsonBlobRe = regexp.MustCompile(`(?s)\{.*\}`)

	fieldFilenameRe = regexp.MustCompile(`"filename"\s*:\s*"([^"]*)"`)
	fieldDescRe     = regexp.MustCompile(`"description"\s*:\s*"([^"]*)"`)
	fieldCodeRe     = regexp.MustCompile(`(?s)"code"\s*:\s*"(.*?)"\s*[,}]`)
)

// ParseStrict matches the delimiter format the coder prompt asks for:
//
//	FILENAME|||name.go|||
//	DESCRIPTION|||what it does|||
//	CODE|||
//	...
//	|||END
func (CodeParser) ParseStrict(text string) (CodePayload, bool) {
	filename := strictFilenameRe.FindStringSubmatch(text)
	desc := strictDescRe.FindStringSubmatch(text)
	code := strictCodeRe.FindStringSubmatch(text)
	if filename == nil || desc == nil || code == nil {
		return CodePayload{}, false
	}
	payload := CodePayload{
		Filename:    strings.TrimSpace(filename[1]),
		Description: strings.TrimSpace(desc[1]),
		Code:        strings.TrimSpace(code[1]),
	}
	if payload.Filename == "" || payload.Code == "" {
		return CodePayload{}, false
	}
	return payload, true
}

// ParseLooseJSON strips markdown fences, finds the first JSON-looking blob
// and unmarshals it.
func (CodeParser) ParseLooseJSON(text string) (CodePayload, bool) {
	cleaned := stripFences(text)
	blob := jsonBlobRe.FindString(cleaned)
	if blob == "" {
		return CodePayload{}, false
	}
	var payload CodePayload
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		return CodePayload{}, false
	}
	if payload.Code == "" {
		return CodePayload{}, false
	}
	if payload.Filename == "" {
		payload.Filename = "generated-code.go"
	}
	return payload, true
}

// ParseFieldExtraction pulls fields out one by one with regexes. Last
// resort before the deterministic fallback; tolerates broken JSON as long
// as the individual fields survived.
func (CodeParser) ParseFieldExtraction(text string) (CodePayload, bool) {
	cleaned := stripFences(text)
	filename := fieldFilenameRe.FindStringSubmatch(cleaned)
	desc := fieldDescRe.FindStringSubmatch(cleaned)
	code := fieldCodeRe.FindStringSubmatch(cleaned)
	if filename == nil || code == nil {
		return CodePayload{}, false
	}
	payload := CodePayload{
		Filename: filename[1],
		Code:     unescapeJSONString(code[1]),
	}
	if desc != nil {
		payload.Description = desc[1]
	}
	if payload.Code == "" {
		return CodePayload{}, false
	}
	return payload, true
}

// ParseCascade runs the tiers in order.
func (p CodeParser) ParseCascade(text string) (CodePayload, bool) {
	if payload, ok := p.ParseStrict(text); ok {
		return payload, true
	}
	if payload, ok := p.ParseLooseJSON(text); ok {
		return payload, true
	}
	return p.ParseFieldExtraction(text)
}

// ExtractJSON finds and returns the first JSON object in free text, with
// markdown fences removed. Used by the planner and debugger, whose prompts
// ask for plain JSON.
func ExtractJSON(text string) (string, bool) {
	blob := jsonBlobRe.FindString(stripFences(text))
	return blob, blob != ""
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	return strings.ReplaceAll(text, "```", "")
}

// unescapeJSONString undoes the common escapes found in a regex-extracted
// JSON string value.
func unescapeJSONString(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`)
	return r.Replace(s)
}
