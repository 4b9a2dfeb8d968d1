package semlog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatServer returns an httptest server that records the last request and
// replies with the given message content.
func chatServer(t *testing.T, content string, lastReq *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if lastReq != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(lastReq))
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
	}))
}

func Test_ChatJudge_Similarity(t *testing.T) {
	var req chatRequest
	srv := chatServer(t, `{"similarity": 0.85}`, &req)
	defer srv.Close()

	j := NewChatJudge(srv.URL, "judge-model", "sk-test", nil)
	score, err := j.Similarity(context.Background(), "dog", "canine")
	require.NoError(t, err)
	assert.Equal(t, 0.85, score)

	// request shape
	assert.Equal(t, "judge-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "dog")
	assert.Contains(t, req.Messages[1].Content, "canine")
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_schema", req.ResponseFormat.Type)
	assert.True(t, req.ResponseFormat.JSONSchema.Strict)
}

func Test_ChatJudge_BearerAuth(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"similarity\":1}"}}]}`)
	}))
	defer srv.Close()

	j := NewChatJudge(srv.URL, "", "sk-secret", nil)
	_, err := j.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-secret", auth)
}

func Test_ChatJudge_ScoreClamping(t *testing.T) {
	srv := chatServer(t, `{"similarity": 1.8}`, nil)
	defer srv.Close()

	j := NewChatJudge(srv.URL, "", "", nil)
	score, err := j.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	srv2 := chatServer(t, `{"similarity": -0.4}`, nil)
	defer srv2.Close()
	j2 := NewChatJudge(srv2.URL, "", "", nil)
	score, err = j2.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func Test_ChatJudge_HasAttr(t *testing.T) {
	srv := chatServer(t, `{"result": true}`, nil)
	defer srv.Close()

	j := NewChatJudge(srv.URL, "", "", nil)
	got, err := j.HasAttr(context.Background(), "can fly", "sparrow")
	require.NoError(t, err)
	assert.True(t, got)
}

func Test_ChatJudge_Differentia(t *testing.T) {
	srv := chatServer(t, `{"result": "rationality"}`, nil)
	defer srv.Close()

	j := NewChatJudge(srv.URL, "", "", nil)
	got, err := j.Differentia(context.Background(), "man", "animal")
	require.NoError(t, err)
	assert.Equal(t, "rationality", got)
}

func Test_ChatJudge_HTTPErrorIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	j := NewChatJudge(srv.URL, "", "", nil)
	_, err := j.Similarity(context.Background(), "a", "b")
	assert.Error(t, err)
}

func Test_ChatJudge_MalformedVerdictIsError(t *testing.T) {
	srv := chatServer(t, `certainly not json`, nil)
	defer srv.Close()

	j := NewChatJudge(srv.URL, "", "", nil)
	_, err := j.Similarity(context.Background(), "a", "b")
	assert.Error(t, err)
}

func Test_ChatJudge_EmptyChoicesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	j := NewChatJudge(srv.URL, "", "", nil)
	_, err := j.Similarity(context.Background(), "a", "b")
	assert.Error(t, err)
}

func Test_ChatJudge_DefaultEndpoint(t *testing.T) {
	j := NewChatJudge("", "", "", nil)
	assert.Equal(t, DefaultJudgeEndpoint, j.Endpoint)
}

// ---- embedding judge ----

func embeddingServer(t *testing.T, vecs [][]float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 2)
		resp := embeddingResponse{}
		for _, v := range vecs {
			resp.Data = append(resp.Data, struct {
				Embedding []float64 `json:"embedding"`
			}{Embedding: v})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func Test_EmbeddingJudge_IdenticalVectors(t *testing.T) {
	srv := embeddingServer(t, [][]float64{{1, 0, 0}, {1, 0, 0}})
	defer srv.Close()

	j := &EmbeddingJudge{Endpoint: srv.URL}
	score, err := j.Similarity(context.Background(), "a", "a")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func Test_EmbeddingJudge_OrthogonalVectors(t *testing.T) {
	srv := embeddingServer(t, [][]float64{{1, 0}, {0, 1}})
	defer srv.Close()

	j := &EmbeddingJudge{Endpoint: srv.URL}
	score, err := j.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-9)
}

func Test_EmbeddingJudge_HasAttrThreshold(t *testing.T) {
	srv := embeddingServer(t, [][]float64{{1, 0}, {1, 0}})
	defer srv.Close()

	j := &EmbeddingJudge{Endpoint: srv.URL, Threshold: 0.9}
	got, err := j.HasAttr(context.Background(), "attr", "x")
	require.NoError(t, err)
	assert.True(t, got)
}

func Test_EmbeddingJudge_DifferentiaAlwaysEmpty(t *testing.T) {
	j := &EmbeddingJudge{}
	got, err := j.Differentia(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func Test_CosineSim(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSim([]float64{2, 0}, []float64{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSim([]float64{1, 0}, []float64{0, 3}), 1e-9)
	assert.Equal(t, 0.0, cosineSim(nil, nil))
	assert.Equal(t, 0.0, cosineSim([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, cosineSim([]float64{0, 0}, []float64{1, 1}))
}

func Test_Clamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(2))
	assert.Equal(t, 0.5, clamp01(0.5))
}
