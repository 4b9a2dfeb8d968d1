// judge.go — the external semantic judge protocol.
//
// The judge is an LLM (or embedding service) reached over HTTP. The engine
// defers semantic goals to a Judge implementation; all failures (network,
// non-2xx, malformed JSON) degrade to "no" — a score of 0, a false result or
// an empty string — and are logged, never raised. Thresholding is applied by
// the caller (the engine), so judges only report raw scores.
package semlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultJudgeEndpoint is the chat-completions endpoint used when no
// configuration is supplied.
const DefaultJudgeEndpoint = "http://localhost:9090/v1/chat/completions"

// DefaultThreshold is the similarity cutoff for semantic matches.
const DefaultThreshold = 0.7

// Judge is the external semantic arbiter.
type Judge interface {
	// Similarity scores conceptual identity of a and b in [0,1].
	Similarity(ctx context.Context, a, b string) (float64, error)
	// HasAttr reports whether x possesses characteristic attr.
	HasAttr(ctx context.Context, attr, x string) (bool, error)
	// ShareAttr reports whether x and y both possess attr.
	ShareAttr(ctx context.Context, attr, x, y string) (bool, error)
	// Differentia states the essential difference between a and b.
	Differentia(ctx context.Context, a, b string) (string, error)
	// SimilarAxis scores similarity of a and b along the given axis in [0,1].
	SimilarAxis(ctx context.Context, axis, a, b string) (float64, error)
}

// ---- chat-completions judge --------------------------------------------

const (
	promptIdentity = "You judge conceptual identity. Given two phrases, decide how strongly " +
		"they denote the same concept. Respond with JSON {\"similarity\": s} where s is in [0,1]."
	promptHasAttr = "You judge attribution. Given a characteristic and a subject, decide " +
		"whether the subject possesses the characteristic. Respond with JSON {\"result\": true|false}."
	promptShareAttr = "You judge shared attribution. Given a characteristic and two subjects, " +
		"decide whether both subjects possess the characteristic. Respond with JSON {\"result\": true|false}."
	promptDifferentia = "You state differentia. Given two concepts, state in one sentence the " +
		"essential property that distinguishes the first from the second. Respond with JSON {\"result\": \"...\"}."
	promptSimilarAxis = "You judge similarity along an axis. Given an axis of comparison and two " +
		"subjects, score their similarity along that axis. Respond with JSON {\"similarity\": s} where s is in [0,1]."
)

// ChatJudge calls an OpenAI-compatible chat-completions endpoint with a
// JSON-schema response pin.
type ChatJudge struct {
	Endpoint string
	Model    string
	APIKey   string

	HTTPClient *http.Client
	Log        *zap.Logger
}

// NewChatJudge returns a judge for the given endpoint; an empty endpoint
// selects DefaultJudgeEndpoint.
func NewChatJudge(endpoint, model, apiKey string, log *zap.Logger) *ChatJudge {
	if endpoint == "" {
		endpoint = DefaultJudgeEndpoint
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatJudge{Endpoint: endpoint, Model: model, APIKey: apiKey, Log: log}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func scoreSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"similarity": map[string]interface{}{"type": "number"},
		},
		"required": []string{"similarity"},
	}
}

func boolSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"result": map[string]interface{}{"type": "boolean"},
		},
		"required": []string{"result"},
	}
}

func stringSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"result": map[string]interface{}{"type": "string"},
		},
		"required": []string{"result"},
	}
}

func (j *ChatJudge) Similarity(ctx context.Context, a, b string) (float64, error) {
	payload := fmt.Sprintf("FIRST: %s\nSECOND: %s", a, b)
	var out struct {
		Similarity float64 `json:"similarity"`
	}
	if err := j.ask(ctx, "identity", promptIdentity, payload, scoreSchema(), &out); err != nil {
		return 0, err
	}
	return clamp01(out.Similarity), nil
}

func (j *ChatJudge) HasAttr(ctx context.Context, attr, x string) (bool, error) {
	payload := fmt.Sprintf("CHARACTERISTIC: %s\nSUBJECT: %s", attr, x)
	var out struct {
		Result bool `json:"result"`
	}
	if err := j.ask(ctx, "has_attr", promptHasAttr, payload, boolSchema(), &out); err != nil {
		return false, err
	}
	return out.Result, nil
}

func (j *ChatJudge) ShareAttr(ctx context.Context, attr, x, y string) (bool, error) {
	payload := fmt.Sprintf("CHARACTERISTIC: %s\nFIRST: %s\nSECOND: %s", attr, x, y)
	var out struct {
		Result bool `json:"result"`
	}
	if err := j.ask(ctx, "share_attr", promptShareAttr, payload, boolSchema(), &out); err != nil {
		return false, err
	}
	return out.Result, nil
}

func (j *ChatJudge) Differentia(ctx context.Context, a, b string) (string, error) {
	payload := fmt.Sprintf("FIRST: %s\nSECOND: %s", a, b)
	var out struct {
		Result string `json:"result"`
	}
	if err := j.ask(ctx, "differentia", promptDifferentia, payload, stringSchema(), &out); err != nil {
		return "", err
	}
	return out.Result, nil
}

func (j *ChatJudge) SimilarAxis(ctx context.Context, axis, a, b string) (float64, error) {
	payload := fmt.Sprintf("AXIS: %s\nFIRST: %s\nSECOND: %s", axis, a, b)
	var out struct {
		Similarity float64 `json:"similarity"`
	}
	if err := j.ask(ctx, "similar_attr", promptSimilarAxis, payload, scoreSchema(), &out); err != nil {
		return 0, err
	}
	return clamp01(out.Similarity), nil
}

// ask sends one system+user exchange and decodes the pinned JSON reply into out.
func (j *ChatJudge) ask(ctx context.Context, op, system, user string, schema map[string]interface{}, out interface{}) error {
	start := time.Now()
	body, err := json.Marshal(chatRequest{
		Model: j.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchema{Name: op, Strict: true, Schema: schema},
		},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if j.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+j.APIKey)
	}

	resp, err := j.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("judge: %s returned %s", op, resp.Status)
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("judge: bad response body: %w", err)
	}
	if payload.Error != nil {
		return fmt.Errorf("judge: %s", payload.Error.Message)
	}
	if len(payload.Choices) == 0 {
		return fmt.Errorf("judge: empty choice list")
	}
	if err := json.Unmarshal([]byte(payload.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("judge: unparsable %s verdict: %w", op, err)
	}
	j.Log.Debug("judge call", zap.String("op", op), zap.Duration("took", time.Since(start)))
	return nil
}

func (j *ChatJudge) httpClient() *http.Client {
	if j.HTTPClient != nil {
		return j.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ---- embedding judge ---------------------------------------------------

// EmbeddingJudge scores similarity as the cosine of normalized embedding
// vectors from an OpenAI-compatible /v1/embeddings endpoint. Boolean
// operations threshold the cosine; Differentia is not expressible with
// embeddings and always reports empty (goal failure).
type EmbeddingJudge struct {
	Endpoint  string
	Model     string
	APIKey    string
	Threshold float64

	HTTPClient *http.Client
	Log        *zap.Logger
}

type embeddingRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (j *EmbeddingJudge) Similarity(ctx context.Context, a, b string) (float64, error) {
	return j.cosine(ctx, a, b)
}

func (j *EmbeddingJudge) HasAttr(ctx context.Context, attr, x string) (bool, error) {
	s, err := j.cosine(ctx, attr, x)
	if err != nil {
		return false, err
	}
	return s >= j.threshold(), nil
}

func (j *EmbeddingJudge) ShareAttr(ctx context.Context, attr, x, y string) (bool, error) {
	sx, err := j.cosine(ctx, attr, x)
	if err != nil {
		return false, err
	}
	sy, err := j.cosine(ctx, attr, y)
	if err != nil {
		return false, err
	}
	return sx >= j.threshold() && sy >= j.threshold(), nil
}

func (j *EmbeddingJudge) Differentia(ctx context.Context, a, b string) (string, error) {
	return "", nil
}

func (j *EmbeddingJudge) SimilarAxis(ctx context.Context, axis, a, b string) (float64, error) {
	// the axis cannot steer an embedding model; fall back to plain cosine
	return j.cosine(ctx, a, b)
}

func (j *EmbeddingJudge) threshold() float64 {
	if j.Threshold > 0 {
		return j.Threshold
	}
	return DefaultThreshold
}

func (j *EmbeddingJudge) cosine(ctx context.Context, a, b string) (float64, error) {
	body, err := json.Marshal(embeddingRequest{Model: j.Model, Input: []string{a, b}})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if j.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+j.APIKey)
	}
	httpc := j.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("judge: embeddings returned %s", resp.Status)
	}
	var payload embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	if len(payload.Data) < 2 {
		return 0, fmt.Errorf("judge: expected 2 embeddings, got %d", len(payload.Data))
	}
	return clamp01(cosineSim(payload.Data[0].Embedding, payload.Data[1].Embedding)), nil
}

func cosineSim(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}
	var dot, nx, ny float64
	for i := range x {
		dot += x[i] * y[i]
		nx += x[i] * x[i]
		ny += y[i] * y[i]
	}
	if nx == 0 || ny == 0 {
		return 0
	}
	return dot / (math.Sqrt(nx) * math.Sqrt(ny))
}
