package hubspace

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testAccountID = "acct-0000-0000-0000-000000000099"

// vendorStub fakes the whole cloud surface: hosted login page, token
// endpoint, account lookup, metadevice listing and state updates.
type vendorStub struct {
	listingCalls int
	lastPush     map[string]any
}

func (s *vendorStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/realms/thd/protocol/openid-connect/auth", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
			http.Error(w, "missing pkce challenge", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `<html><form action="/auth/realms/thd/login-actions/authenticate?session_code=sess123&amp;execution=exec456&amp;client_id=hubspace_android&amp;tab_id=tab789" method="post"></form></html>`)
	})
	mux.HandleFunc("POST /auth/realms/thd/login-actions/authenticate", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.URL.Query().Get("session_code") != "sess123" || r.URL.Query().Get("tab_id") != "tab789" {
			http.Error(w, "bad session", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("username") != "user@example.com" || r.PostForm.Get("password") != "hunter2" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Location", "hubspace-app://loginredirect?session_state=abc&code=authcode123")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("POST /auth/realms/thd/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != "authcode123" || r.PostForm.Get("code_verifier") == "" {
				http.Error(w, "bad code", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"refresh_token": "refresh-token-1"}`)
		case "refresh_token":
			if r.PostForm.Get("refresh_token") != "refresh-token-1" {
				http.Error(w, "bad refresh token", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"id_token": "id-token-1"}`)
		default:
			http.Error(w, "bad grant", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("GET /v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer id-token-1" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"accountAccess": [{"account": {"accountId": "%s"}}]}`, testAccountID)
	})
	mux.HandleFunc(fmt.Sprintf("GET /v1/accounts/%s/metadevices", testAccountID), func(w http.ResponseWriter, r *http.Request) {
		s.listingCalls++
		fmt.Fprint(w, testListingJSON)
	})
	mux.HandleFunc(fmt.Sprintf("PUT /v1/accounts/%s/metadevices/", testAccountID), func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.lastPush = map[string]any{}
		json.Unmarshal(body, &s.lastPush)
		w.Write(body)
	})
	return mux
}

func newTestClient(t *testing.T, stub *vendorStub) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)
	client := NewClient("user@example.com", "hunter2", nil)
	client.accountsBaseURL = server.URL + "/auth/realms/thd"
	client.apiBaseURL = server.URL + "/v1"
	client.semanticsBaseURL = server.URL + "/v1"
	return client, server
}

func TestClientAuthenticate(t *testing.T) {
	client, _ := newTestClient(t, &vendorStub{})

	err := client.Authenticate()
	assert.NoError(t, err)
	assert.Equal(t, testAccountID, client.accountID)
	assert.Equal(t, "refresh-token-1", client.refreshToken)
}

func TestClientAuthenticateBadCredentials(t *testing.T) {
	stub := &vendorStub{}
	client, _ := newTestClient(t, stub)
	client.password = "wrong"

	err := client.Authenticate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no authorization code")
}

func TestClientFetchDevices(t *testing.T) {
	stub := &vendorStub{}
	client, _ := newTestClient(t, stub)
	assert.NoError(t, client.Authenticate())

	snapshot, err := client.FetchDevices()
	assert.NoError(t, err)
	assert.Len(t, snapshot, 4)
	assert.NotNil(t, snapshot["lght-0000-0000-0000-000000000001"])
	assert.Equal(t, 1, stub.listingCalls)
}

func TestClientFetchDevicesRequiresAuth(t *testing.T) {
	client, _ := newTestClient(t, &vendorStub{})
	_, err := client.FetchDevices()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not authenticated")
}

func TestClientTokenCaching(t *testing.T) {
	client, _ := newTestClient(t, &vendorStub{})
	assert.NoError(t, client.Authenticate())

	token, err := client.bearerToken()
	assert.NoError(t, err)
	firstAt := client.cachedTokenAt

	// a fresh cached token is reused, not re-fetched
	token2, err := client.bearerToken()
	assert.NoError(t, err)
	assert.Equal(t, token, token2)
	assert.Equal(t, firstAt, client.cachedTokenAt)

	// an expired cache triggers a new exchange
	client.cachedTokenAt -= tokenTTLMillis + 1
	_, err = client.bearerToken()
	assert.NoError(t, err)
	assert.Greater(t, client.cachedTokenAt, firstAt-tokenTTLMillis)
}

func TestClientSetState(t *testing.T) {
	stub := &vendorStub{}
	client, _ := newTestClient(t, stub)
	assert.NoError(t, client.Authenticate())

	doc, err := client.SetState("lght-0000-0000-0000-000000000001", []StateUpdate{
		{FunctionClass: FunctionClassBrightness, Value: "49"},
		{FunctionClass: FunctionClassPower, Value: "on", FunctionInstance: "light-power"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "lght-0000-0000-0000-000000000001", doc.MetadeviceID)
	assert.Len(t, doc.Values, 2)
	assert.Equal(t, "49", doc.Values[0].Value)
	// the client stamps lastUpdateTime itself
	assert.Positive(t, doc.Values[0].LastUpdateTime)

	assert.Equal(t, "lght-0000-0000-0000-000000000001", stub.lastPush["metadeviceId"])
}

func TestCodeVerifierAndChallenge(t *testing.T) {
	verifier, challenge, err := codeVerifierAndChallenge()
	assert.NoError(t, err)
	assert.NotEmpty(t, verifier)
	assert.NotEmpty(t, challenge)
	assert.NotContains(t, verifier, "=")
	assert.NotContains(t, verifier, "-")
	assert.NotContains(t, verifier, "_")
	assert.False(t, strings.ContainsAny(challenge, "+/="))

	verifier2, _, err := codeVerifierAndChallenge()
	assert.NoError(t, err)
	assert.NotEqual(t, verifier, verifier2)
}
