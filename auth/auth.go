// Password files for the HTTP server's basic authentication.
//
// A password file has lines of the form username:password.  Blank lines are ignored.

package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"os"
	"strings"

	. "ecloudframes/common"
)

type Authenticator struct {
	identities map[string]string
}

func ReadPasswords(filename string) (*Authenticator, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParsePasswords(string(bs))
}

func ParsePasswords(text string) (*Authenticator, error) {
	m := make(map[string]string)
	for i, l := range strings.Split(text, "\n") {
		s := strings.TrimSpace(l)
		if s == "" {
			continue
		}
		user, pass, found := strings.Cut(s, ":")
		if !found || user == "" || strings.Contains(pass, ":") {
			return nil, fmt.Errorf("Password file has the wrong format (line %d)", i+1)
		}
		if _, found := m[user]; found {
			return nil, fmt.Errorf("Password file has duplicated user name (line %d)", i+1)
		}
		m[user] = pass
	}
	return &Authenticator{identities: m}, nil
}

func (a *Authenticator) Authenticate(user, pass string) bool {
	probe, found := a.identities[user]
	return found && subtle.ConstantTimeCompare([]byte(probe), []byte(pass)) == 1
}

// Wrap handler in HTTP basic authentication for the realm.  A nil authenticator lets everything
// through.  The realm should not contain a `"` character.
func (a *Authenticator) Wrap(handler http.Handler, realm string) http.Handler {
	if a == nil {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !a.Authenticate(user, pass) {
			w.Header().Add("WWW-Authenticate", "Basic realm=\""+realm+"\", charset=\"utf-8\"")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintf(w, "Unauthorized")
			Log.Warning("Authorization failed")
			return
		}
		handler.ServeHTTP(w, r)
	})
}
