package llm

import (
	"encoding/json"
	"net/http"
	"strings"
)

// StubHandler serves a minimal OpenAI-compatible API under /v1 for local runs
// and tests: /v1/models lists Model and /v1/chat/completions answers every
// request with Reply.
type StubHandler struct {
	Model string
	Reply string
}

type stubChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func (h StubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	model := strings.TrimSpace(h.Model)
	if model == "" {
		model = "test-model"
	}
	switch r.URL.Path {
	case "/v1/models":
		writeJSON(w, map[string]any{
			"object": "list",
			"data":   []map[string]any{{"id": model, "object": "model"}},
		})
	case "/v1/chat/completions":
		defer r.Body.Close()
		var req stubChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		reply := h.Reply
		if strings.TrimSpace(reply) == "" {
			reply = "- Convert photographs to WebP and icons to SVG."
		}
		writeJSON(w, map[string]any{
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
