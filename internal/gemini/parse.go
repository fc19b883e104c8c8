package gemini

import (
	"encoding/json"
	"strings"
)

// ParseKind tags how engine output was interpreted.
type ParseKind int

const (
	// ParseStructured means stdout matched the engine's JSON envelope.
	ParseStructured ParseKind = iota
	// ParseRaw means stdout was taken verbatim as the answer.
	ParseRaw
)

// parsedOutput is the normalized form of one engine invocation's stdout.
type parsedOutput struct {
	Kind       ParseKind
	Text       string
	TokensUsed int
	APICalls   int
	Model      string
}

// jsonEnvelope mirrors the gemini CLI's --output-format json shape.
type jsonEnvelope struct {
	Response string `json:"response"`
	Stats    struct {
		Models map[string]struct {
			API struct {
				TotalRequests int `json:"totalRequests"`
			} `json:"api"`
			Tokens struct {
				Total int `json:"total"`
			} `json:"tokens"`
		} `json:"models"`
	} `json:"stats"`
}

// parseOutput tries the strict JSON envelope first and falls back to
// treating the whole payload as literal text. Unstructured output is
// never an error: the engine is free to answer in plain prose.
func parseOutput(stdout string) parsedOutput {
	trimmed := strings.TrimSpace(stdout)

	var env jsonEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil || env.Response == "" {
		return parsedOutput{Kind: ParseRaw, Text: trimmed}
	}

	p := parsedOutput{Kind: ParseStructured, Text: env.Response}
	for model, stats := range env.Stats.Models {
		p.TokensUsed += stats.Tokens.Total
		p.APICalls += stats.API.TotalRequests
		if p.Model == "" {
			p.Model = model
		}
	}
	return p
}

// extractFilesReferenced pulls the delimited "Files referenced:" listing
// out of an answer. The listing is the block of non-blank lines that
// follows a line consisting of the marker; list bullets and @ markers
// are stripped.
func extractFilesReferenced(text string) []string {
	var files []string
	collecting := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !collecting {
			if strings.EqualFold(strings.TrimSuffix(trimmed, ":"), "files referenced") {
				collecting = true
			}
			continue
		}
		if trimmed == "" {
			break
		}
		trimmed = strings.TrimPrefix(trimmed, "- ")
		trimmed = strings.TrimPrefix(trimmed, "* ")
		trimmed = strings.TrimPrefix(trimmed, "@")
		if trimmed != "" {
			files = append(files, trimmed)
		}
	}
	return files
}
