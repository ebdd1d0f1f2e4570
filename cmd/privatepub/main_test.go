package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/privatepub/privatepub"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd(viper.New())
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestPublishCommand(t *testing.T) {
	messages := make(chan string, 1)
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		messages <- r.PostFormValue("message")
		io.WriteString(w, `[{"successful":true}]`)
	}))
	defer s.Close()

	out, err := execute(t, "publish", "--server", s.URL+"/faye", "--secret-token", "token", "/messages/1", `{"id":1}`)
	require.NoError(t, err)
	assert.Equal(t, "[{\"successful\":true}]\n", out)

	assert.JSONEq(t, `{"channel":"/messages/1","data":{"channel":"/messages/1","data":{"id":1}},"ext":{"private_pub_token":"token"}}`, <-messages)
}

func TestPublishCommandEval(t *testing.T) {
	messages := make(chan string, 1)
	s := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		messages <- r.PostFormValue("message")
	}))
	defer s.Close()

	_, err := execute(t, "publish", "--server", s.URL, "--secret-token", "token", "--eval", "/messages/1", "alert(1)")
	require.NoError(t, err)

	assert.JSONEq(t, `{"channel":"/messages/1","data":{"channel":"/messages/1","eval":"alert(1)"},"ext":{"private_pub_token":"token"}}`, <-messages)
}

func TestPublishCommandInvalidJSON(t *testing.T) {
	_, err := execute(t, "publish", "--server", "http://localhost", "--secret-token", "token", "/messages/1", "alert(1)")
	require.Error(t, err)
}

func TestPublishCommandWithoutServer(t *testing.T) {
	_, err := execute(t, "publish", "--secret-token", "token", "/messages/1", "{}")
	require.ErrorIs(t, err, privatepub.ErrNoServer)
}

func TestPublishCommandErrorStatus(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer s.Close()

	_, err := execute(t, "publish", "--server", s.URL, "--secret-token", "token", "/messages/1", "{}")
	require.ErrorContains(t, err, "403 Forbidden")
}

func TestSignCommand(t *testing.T) {
	out, err := execute(t, "sign", "--server", "http://localhost:9292/faye", "--secret-token", "token", "/messages/1")
	require.NoError(t, err)

	var sub privatepub.Subscription
	require.NoError(t, json.Unmarshal([]byte(out), &sub))

	assert.Equal(t, "http://localhost:9292/faye", sub.Server)
	assert.Equal(t, "/messages/1", sub.Channel)
	assert.Equal(t, privatepub.ActionSubscribe, sub.Action)

	s, err := privatepub.NewSigner(privatepub.Config{SecretToken: "token"})
	require.NoError(t, err)

	expected, err := s.GenerateSignature("/messages/1", sub.Timestamp, privatepub.ActionSubscribe)
	require.NoError(t, err)
	assert.Equal(t, expected, sub.Signature)
}

func TestSignCommandInvalidAction(t *testing.T) {
	_, err := execute(t, "sign", "--secret-token", "token", "--action", "unsubscribe", "/messages/1")
	require.Error(t, err)
}

func TestSignCommandWithoutSecretToken(t *testing.T) {
	_, err := execute(t, "sign", "/messages/1")
	require.ErrorIs(t, err, privatepub.ErrNoSecretToken)
}

func TestSignCommandEnvironment(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "private_pub.yml")
	require.NoError(t, os.WriteFile(filename, []byte("production:\n  secret_token: \"production-secret\"\n"), 0o600))

	out, err := execute(t, "sign", "--config", filename, "--environment", "production", "/messages/1")
	require.NoError(t, err)
	assert.Contains(t, out, `"signature"`)

	_, err = execute(t, "sign", "--config", filename, "--environment", "staging", "/messages/1")
	require.ErrorIs(t, err, privatepub.ErrInvalidConfig)
}

func signedWith(t *testing.T, out, secretToken string) bool {
	t.Helper()

	var sub privatepub.Subscription
	require.NoError(t, json.Unmarshal([]byte(out), &sub))

	s, err := privatepub.NewSigner(privatepub.Config{SecretToken: secretToken})
	require.NoError(t, err)

	expected, err := s.GenerateSignature(sub.Channel, sub.Timestamp, sub.Action)
	require.NoError(t, err)

	return expected == sub.Signature
}

func TestSignCommandEnvironmentOverrides(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "private_pub.yml")
	require.NoError(t, os.WriteFile(filename, []byte("production:\n  secret_token: \"production-secret\"\n"), 0o600))

	out, err := execute(t, "sign", "--config", filename, "--environment", "production", "/messages/1")
	require.NoError(t, err)
	assert.True(t, signedWith(t, out, "production-secret"))

	out, err = execute(t, "sign", "--config", filename, "--environment", "production", "--secret-token", "from-flag", "/messages/1")
	require.NoError(t, err)
	assert.True(t, signedWith(t, out, "from-flag"))

	t.Setenv("PRIVATEPUB_SECRET_TOKEN", "from-env")

	out, err = execute(t, "sign", "--config", filename, "--environment", "production", "/messages/1")
	require.NoError(t, err)
	assert.True(t, signedWith(t, out, "from-env"))

	// Flags win over environment variables
	out, err = execute(t, "sign", "--config", filename, "--environment", "production", "--secret-token", "from-flag", "/messages/1")
	require.NoError(t, err)
	assert.True(t, signedWith(t, out, "from-flag"))
}

func TestSignCommandInvalidSignatureExpiration(t *testing.T) {
	_, err := execute(t, "sign", "--secret-token", "token", "--signature-expiration=-1", "/messages/1")
	require.ErrorIs(t, err, privatepub.ErrInvalidConfig)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "privatepub ")
}
