package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/models/") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"loaded": true}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	t.Setenv("STANFORD_CONFIG", "")
	t.Setenv("DISABLE_DEPPARSE", "true")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"models", "--model-url", srv.URL})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "model service: "+srv.URL)
	assert.Regexp(t, `parser\s+ready`, out.String())
	assert.Regexp(t, `depparse\s+disabled`, out.String())
}
