package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"aura-board/internal/board"
	"aura-board/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, session string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--session", session}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLogin_SavesTokenFromEnvServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok-1","user":{"id":1,"email":"ada@example.com","display_name":"Ada"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	t.Setenv("AURA_SERVER", srv.URL)

	path := filepath.Join(t.TempDir(), "session.json")

	out, err := runCLI(t, path, "login", "--email", "ada@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ada.")
	assert.Contains(t, out, roomHint)

	sess, err := client.NewSessionStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)

	_, err = runCLI(t, filepath.Join(t.TempDir(), "other.json"), "login", "--email", "ada@example.com", "--password", "nope")
	assert.EqualError(t, err, "wrong email or password")
}

func TestWhoAmI_SignedOut(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "session.json"), "whoami")
	assert.ErrorIs(t, err, errNotSignedIn)
}

func TestList_WithoutRoomPrintsHint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, client.NewSessionStore(path).Save(client.Session{Token: "tok-1"}))

	out, err := runCLI(t, path, "list")
	assert.Error(t, err)
	assert.Contains(t, out, roomHint)
}

func TestAdjust_RejectsBadAmount(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "session.json"), "adjust", "12", "lots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid amount "lots"`)
}

func TestLogout_ClearsSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, client.NewSessionStore(path).Save(client.Session{Token: "tok-1", CurrentRoomID: 4}))

	out, err := runCLI(t, path, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	sess, err := client.NewSessionStore(path).Load()
	require.NoError(t, err)
	assert.Empty(t, sess.Token)
	assert.Zero(t, sess.CurrentRoomID)
}

func TestPrintRanking(t *testing.T) {
	var buf bytes.Buffer
	printRanking(&buf, nil)
	assert.Contains(t, buf.String(), "Nobody here yet")

	buf.Reset()
	printRanking(&buf, []board.RankedEntity{
		{Rank: 1, Entity: board.Entity{ID: "7", Name: "Ada", Score: 1_500_000}},
		{Rank: 2, Entity: board.Entity{ID: "3", Name: "Bob", Score: -42}},
	})
	out := buf.String()
	assert.Contains(t, out, "RANK")
	assert.Regexp(t, `#1\s+Ada\s+\+1\.5M\s+7`, out)
	assert.Regexp(t, `#2\s+Bob\s+-42\s+3`, out)
}
