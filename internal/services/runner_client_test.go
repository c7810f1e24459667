package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPRunnerClient_Execute(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/execute/run", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"test_file":"t.robot","result":{"returncode":"0","stdout":"Duration: 1.5s","stderr":""}}`))
	}))
	defer srv.Close()

	client := NewHTTPRunnerClient(srv.URL+"/", time.Second)
	resp, err := client.Execute(context.Background(), twoStepRequest())

	require.NoError(t, err)
	assert.JSONEq(t, `{"json_config":{"name":"Login","steps":[
		{"keyword":"Page Load","args":["https://example.com"]},
		{"keyword":"Click Element","args":["#login"]}]}}`, gotBody)
	assert.Equal(t, "t.robot", resp.TestFile)
	require.NotNil(t, resp.Result)
	assert.Equal(t, ReturnCode("0"), resp.Result.ReturnCode)
}

func TestHTTPRunnerClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "runner exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPRunnerClient(srv.URL, time.Second).Execute(context.Background(), twoStepRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code 500")
	assert.Contains(t, err.Error(), "runner exploded")
}

func TestHTTPRunnerClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPRunnerClient(url, time.Second).Execute(context.Background(), twoStepRequest())
	assert.Error(t, err)
}

func TestHTTPRunnerClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewHTTPRunnerClient(srv.URL, time.Second).Execute(context.Background(), twoStepRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
