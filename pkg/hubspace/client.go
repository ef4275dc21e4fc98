package hubspace

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultAccountsBaseURL  = "https://accounts.hubspaceconnect.com/auth/realms/thd"
	defaultAPIBaseURL       = "https://api2.afero.net/v1"
	defaultSemanticsBaseURL = "https://semantics2.afero.net/v1"

	oauthClientID    = "hubspace_android"
	oauthRedirectURI = "hubspace-app://loginredirect"
	userAgent        = "Dart/2.15 (dart:io)"

	// The vendor's bearer tokens live two minutes. Caching for a hair
	// less keeps every request inside the validity window.
	tokenTTLMillis = 118 * 1000
)

var (
	sessionCodeRegexp = regexp.MustCompile(`session_code=([^&"]+)`)
	executionRegexp   = regexp.MustCompile(`execution=([^&"]+)`)
	tabIDRegexp       = regexp.MustCompile(`tab_id=([^&"]+)`)
	authCodeRegexp    = regexp.MustCompile(`[&?]code=([^&]+)`)
	nonAlphanumeric   = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// Client talks to the Hubspace cloud: PKCE login, metadevice listing and
// state updates. It is not safe for concurrent use; the adapter actor
// serializes calls.
type Client struct {
	username string
	password string

	accountsBaseURL  string
	apiBaseURL       string
	semanticsBaseURL string

	httpClient       *http.Client
	noRedirectClient *http.Client

	refreshToken   string
	accountID      string
	cachedToken    string
	cachedTokenAt  int64
	logger         *zap.Logger
}

func NewClient(username, password string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		username:         username,
		password:         password,
		accountsBaseURL:  defaultAccountsBaseURL,
		apiBaseURL:       defaultAPIBaseURL,
		semanticsBaseURL: defaultSemanticsBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
		noRedirectClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// Authenticate runs the PKCE authorization-code flow and resolves the
// account id. It must succeed before FetchDevices or SetState are used.
func (c *Client) Authenticate() error {
	refreshToken, err := c.fetchRefreshToken()
	if err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	c.refreshToken = refreshToken
	c.cachedToken = ""
	c.cachedTokenAt = 0

	accountID, err := c.fetchAccountID()
	if err != nil {
		return fmt.Errorf("failed to resolve account id: %w", err)
	}
	c.accountID = accountID
	c.logger.Debug("authenticated", zap.String("accountId", accountID))
	return nil
}

// FetchDevices downloads the metadevice listing with expanded state and
// parses it into a Snapshot.
func (c *Client) FetchDevices() (Snapshot, error) {
	token, err := c.bearerToken()
	if err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/accounts/%s/metadevices?expansions=state", c.apiBaseURL, c.accountID)
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadevices request: %w", err)
	}
	c.setAPIHeaders(req, token)
	body, err := c.do(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadevices: %w", err)
	}
	snapshot, err := ParseSnapshot(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadevices: %w", err)
	}
	return snapshot, nil
}

// SetState pushes a batch of state values for one metadevice and returns
// the vendor's resulting state document. The update timestamp is stamped
// here so callers only provide class, instance and value.
func (c *Client) SetState(metadeviceID string, values []StateUpdate) (*StateDoc, error) {
	token, err := c.bearerToken()
	if err != nil {
		return nil, err
	}
	now := utcNowMillis()
	for i := range values {
		values[i].LastUpdateTime = now
	}
	payload, err := json.Marshal(struct {
		MetadeviceID string        `json:"metadeviceId"`
		Values       []StateUpdate `json:"values"`
	}{MetadeviceID: metadeviceID, Values: values})
	if err != nil {
		return nil, fmt.Errorf("failed to encode state payload: %w", err)
	}
	reqURL := fmt.Sprintf("%s/accounts/%s/metadevices/%s/state", c.semanticsBaseURL, c.accountID, metadeviceID)
	req, err := http.NewRequest(http.MethodPut, reqURL, strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to build state request: %w", err)
	}
	c.setAPIHeaders(req, token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	body, err := c.do(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("failed to set state: %w", err)
	}
	doc, err := ParseStateDoc(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse state response: %w", err)
	}
	return doc, nil
}

// bearerToken exchanges the refresh token for an id token, reusing the
// cached one while it is fresh.
func (c *Client) bearerToken() (string, error) {
	if c.refreshToken == "" {
		return "", fmt.Errorf("not authenticated")
	}
	now := utcNowMillis()
	if c.cachedToken != "" && now-c.cachedTokenAt < tokenTTLMillis {
		return c.cachedToken, nil
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.refreshToken},
		"scope":         {"openid email offline_access profile"},
		"client_id":     {oauthClientID},
	}
	var tokenResponse struct {
		IDToken string `json:"id_token"`
	}
	if err := c.postForm(c.tokenURL(), form, &tokenResponse); err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	if tokenResponse.IDToken == "" {
		return "", fmt.Errorf("failed to refresh token: empty id_token")
	}
	c.cachedToken = tokenResponse.IDToken
	c.cachedTokenAt = now
	return c.cachedToken, nil
}

func (c *Client) fetchRefreshToken() (string, error) {
	verifier, challenge, err := codeVerifierAndChallenge()
	if err != nil {
		return "", err
	}
	session, err := c.openAuthSession(challenge)
	if err != nil {
		return "", err
	}
	code, err := c.submitCredentials(session)
	if err != nil {
		return "", err
	}
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {oauthRedirectURI},
		"code_verifier": {verifier},
		"client_id":     {oauthClientID},
	}
	var tokenResponse struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.postForm(c.tokenURL(), form, &tokenResponse); err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if tokenResponse.RefreshToken == "" {
		return "", fmt.Errorf("failed to exchange authorization code: empty refresh_token")
	}
	return tokenResponse.RefreshToken, nil
}

type authSession struct {
	sessionCode string
	execution   string
	tabID       string
}

// openAuthSession loads the hosted login page and scrapes the form
// action parameters the credential POST needs.
func (c *Client) openAuthSession(challenge string) (*authSession, error) {
	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {oauthClientID},
		"redirect_uri":          {oauthRedirectURI},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
		"scope":                 {"openid offline_access"},
		"state":                 {uuid.NewString()},
	}
	reqURL := fmt.Sprintf("%s/protocol/openid-connect/auth?%s", c.accountsBaseURL, params.Encode())
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build auth session request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	body, err := c.do(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("failed to open auth session: %w", err)
	}
	session := &authSession{
		sessionCode: firstMatch(sessionCodeRegexp, body),
		execution:   firstMatch(executionRegexp, body),
		tabID:       firstMatch(tabIDRegexp, body),
	}
	if session.sessionCode == "" || session.execution == "" || session.tabID == "" {
		return nil, fmt.Errorf("failed to open auth session: login form parameters not found")
	}
	return session, nil
}

// submitCredentials posts the login form with redirects disabled and
// pulls the authorization code out of the redirect Location.
func (c *Client) submitCredentials(session *authSession) (string, error) {
	params := url.Values{
		"session_code": {session.sessionCode},
		"execution":    {session.execution},
		"client_id":    {oauthClientID},
		"tab_id":       {session.tabID},
	}
	reqURL := fmt.Sprintf("%s/login-actions/authenticate?%s", c.accountsBaseURL, params.Encode())
	form := url.Values{
		"username":     {c.username},
		"password":     {c.password},
		"credentialId": {""},
	}
	req, err := http.NewRequest(http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.noRedirectClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit credentials: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	location := resp.Header.Get("Location")
	match := authCodeRegexp.FindStringSubmatch(location)
	if match == nil {
		return "", fmt.Errorf("failed to submit credentials: no authorization code (status %d), check username/password", resp.StatusCode)
	}
	return match[1], nil
}

func (c *Client) fetchAccountID() (string, error) {
	token, err := c.bearerToken()
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest(http.MethodGet, c.apiBaseURL+"/users/me", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build account request: %w", err)
	}
	c.setAPIHeaders(req, token)
	body, err := c.do(c.httpClient, req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch account info: %w", err)
	}
	var account struct {
		AccountAccess []struct {
			Account struct {
				AccountID string `json:"accountId"`
			} `json:"account"`
		} `json:"accountAccess"`
	}
	if err := json.Unmarshal(body, &account); err != nil {
		return "", fmt.Errorf("failed to decode account info: %w", err)
	}
	if len(account.AccountAccess) == 0 || account.AccountAccess[0].Account.AccountID == "" {
		return "", fmt.Errorf("failed to decode account info: no account access")
	}
	return account.AccountAccess[0].Account.AccountID, nil
}

func (c *Client) tokenURL() string {
	return c.accountsBaseURL + "/protocol/openid-connect/token"
}

func (c *Client) postForm(reqURL string, form url.Values, out any) error {
	req, err := http.NewRequest(http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	body, err := c.do(c.httpClient, req)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *Client) setAPIHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// codeVerifierAndChallenge builds a PKCE pair: the verifier is 40 random
// bytes base64url-encoded with non-alphanumerics stripped, the challenge
// its unpadded base64url SHA-256.
func codeVerifierAndChallenge() (verifier string, challenge string, err error) {
	random := make([]byte, 40)
	if _, err = rand.Read(random); err != nil {
		return "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	verifier = nonAlphanumeric.ReplaceAllString(base64.RawURLEncoding.EncodeToString(random), "")
	digest := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(digest[:])
	return verifier, challenge, nil
}

func firstMatch(re *regexp.Regexp, body []byte) string {
	match := re.FindSubmatch(body)
	if match == nil {
		return ""
	}
	return string(match[1])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func utcNowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}
