package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswords(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "passwords")
	require.NoError(t, os.WriteFile(fn, []byte("grunge:dirge\n\n  fuzz:fizz  \n"), 0600))
	a, err := ReadPasswords(fn)
	require.NoError(t, err)
	assert.True(t, a.Authenticate("grunge", "dirge"))
	assert.False(t, a.Authenticate("grunge", "blapp"))
	assert.True(t, a.Authenticate("fuzz", "fizz"))
	assert.False(t, a.Authenticate("blum", "fuzz"))

	_, err = ParsePasswords("a:b\na:c\n")
	assert.ErrorContains(t, err, "line 2")
	_, err = ParsePasswords("a/b\n")
	assert.ErrorContains(t, err, "line 1")
}

func TestWrap(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	a, err := ParsePasswords("frobnitz:fizzbuzz")
	require.NoError(t, err)
	h := a.Wrap(ok, "frames")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tags", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `realm="frames"`)

	req := httptest.NewRequest(http.MethodGet, "/tags", nil)
	req.SetBasicAuth("frobnitz", "fizzbuzz")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var none *Authenticator
	rec = httptest.NewRecorder()
	none.Wrap(ok, "frames").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
