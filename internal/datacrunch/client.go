package datacrunch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://api.datacrunch.io/v1"

// APIError is a non-2xx response from the DataCrunch API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("datacrunch returned %d: %s", e.StatusCode, e.Body)
}

// Price decodes both JSON numbers and numeric strings; the API has used both.
type Price float64

func (p *Price) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parsing price %s: %w", string(b), err)
	}
	*p = Price(f)
	return nil
}

type Component struct {
	Description     string  `json:"description"`
	NumberOfGPUs    int     `json:"number_of_gpus"`
	NumberOfCores   int     `json:"number_of_cores"`
	SizeInGigabytes float64 `json:"size_in_gigabytes"`
}

// InstanceType is one entry of GET /instance-types.
type InstanceType struct {
	ID           string    `json:"id"`
	InstanceType string    `json:"instance_type"`
	Description  string    `json:"description"`
	PricePerHour Price     `json:"price_per_hour"`
	SpotPrice    Price     `json:"spot_price"`
	Currency     string    `json:"currency"`
	GPU          Component `json:"gpu"`
	CPU          Component `json:"cpu"`
	Memory       Component `json:"memory"`
	GPUMemory    Component `json:"gpu_memory"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// NewClient creates a client that authenticates with the OAuth2
// client-credentials grant. Tokens are fetched lazily and reused until expiry.
func NewClient(clientID, clientSecret string, opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var log logrus.FieldLogger = opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	base := &http.Client{Timeout: timeout}
	ts := oauth2.ReuseTokenSource(nil, &tokenSource{
		url:          baseURL + "/oauth2/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   base,
	})
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: ts, Base: base.Transport},
		},
		log: log,
	}
}

// InstanceTypes returns every instance type the provider currently lists.
func (c *Client) InstanceTypes(ctx context.Context) ([]InstanceType, error) {
	var result []InstanceType
	if err := c.get(ctx, "/instance-types", &result); err != nil {
		return nil, fmt.Errorf("listing instance types: %w", err)
	}
	c.log.WithField("count", len(result)).Debug("fetched datacrunch instance types")
	return result, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("datacrunch request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// tokenSource performs the client-credentials exchange. The API wants a JSON
// body, which golang.org/x/oauth2/clientcredentials does not send.
type tokenSource struct {
	url          string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Token has no context to honour (oauth2.TokenSource); the client timeout bounds it.
func (s *tokenSource) Token() (*oauth2.Token, error) {
	payload, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     s.clientID,
		"client_secret": s.clientSecret,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting datacrunch token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}
	tok := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    "Bearer",
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return tok, nil
}
