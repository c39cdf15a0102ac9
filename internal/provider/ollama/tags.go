package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/calder-ai/relay/internal/httpclient"
)

// fetchTags pulls the tag listing and parses it tolerantly. Servers have
// shipped two shapes over time: a bare array of name strings, and an object
// carrying a "models" array whose entries name the model under either a
// "name" or a "model" field.
func fetchTags(ctx context.Context, client httpclient.HTTPClient, baseURL string) ([]string, error) {
	var raw json.RawMessage
	if err := httpclient.SendRequest(ctx, client, http.MethodGet, baseURL+"/tags", nil, nil, &raw); err != nil {
		return nil, err
	}
	return parseTagList(raw)
}

func parseTagList(raw []byte) ([]string, error) {
	var bare []string
	if err := json.Unmarshal(raw, &bare); err == nil {
		return dedupe(bare), nil
	}

	var wrapped struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("unrecognized tag list shape: %w", err)
	}

	names := make([]string, 0, len(wrapped.Models))
	for _, m := range wrapped.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		names = append(names, name)
	}
	return dedupe(names), nil
}

// dedupe trims whitespace and drops empty and repeated entries, preserving
// first-seen order.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
