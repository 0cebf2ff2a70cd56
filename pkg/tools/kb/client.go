// Package kb retrieves passages from an Amazon Bedrock knowledge base
// and exposes the lookup as a conversational tool.
package kb

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const (
	signingService = "bedrock"

	// DefaultMaxResults bounds a retrieval when the caller does not ask
	// for a specific count.
	DefaultMaxResults = 5
)

// Result is one retrieved passage with its provenance and relevance.
type Result struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}

type Metadata struct {
	Source   string `json:"source"`
	Location string `json:"location,omitempty"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
}

// Retriever answers free-text queries against a knowledge base.
type Retriever interface {
	Retrieve(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Config tunes the client. KnowledgeBaseID is required.
type Config struct {
	Region          string
	KnowledgeBaseID string
	Endpoint        string // override, mostly for tests

	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Option func(*Client)

// WithStaticCredentials bypasses the default AWS credential chain.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(c *Client) {
		c.creds = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)
	}
}

// WithCredentials injects an arbitrary credentials provider.
func WithCredentials(p aws.CredentialsProvider) Option {
	return func(c *Client) { c.creds = p }
}

// Client calls the Bedrock Agent Runtime retrieve API over SigV4-signed
// HTTP. Safe for concurrent use.
type Client struct {
	region   string
	kbID     string
	endpoint string
	creds    aws.CredentialsProvider
	signer   *v4.Signer
	client   *http.Client
	logger   *slog.Logger
}

// NewClient resolves credentials up front so a misconfigured process
// fails at startup.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.KnowledgeBaseID == "" {
		return nil, errors.New("kb: knowledge base ID not configured")
	}
	c := &Client{
		region: cfg.Region,
		kbID:   cfg.KnowledgeBaseID,
		signer: v4.NewSigner(),
		client: cfg.HTTPClient,
		logger: cfg.Logger,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.creds == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		c.creds = awsCfg.Credentials
		if c.region == "" {
			c.region = awsCfg.Region
		}
	}
	if c.region == "" {
		return nil, errors.New("kb: region not configured")
	}
	if _, err := c.creds.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("resolve aws credentials: %w", err)
	}

	c.endpoint = cfg.Endpoint
	if c.endpoint == "" {
		c.endpoint = fmt.Sprintf("https://bedrock-agent-runtime.%s.amazonaws.com", c.region)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 30 * time.Second}
	}
	return c, nil
}

type retrieveRequest struct {
	RetrievalQuery struct {
		Text string `json:"text"`
	} `json:"retrievalQuery"`
	RetrievalConfiguration struct {
		VectorSearchConfiguration struct {
			NumberOfResults int `json:"numberOfResults"`
		} `json:"vectorSearchConfiguration"`
	} `json:"retrievalConfiguration"`
}

type retrieveResponse struct {
	RetrievalResults []struct {
		Content struct {
			Text string `json:"text"`
		} `json:"content"`
		Location struct {
			S3Location struct {
				URI string `json:"uri"`
			} `json:"s3Location"`
			ConfluenceLocation struct {
				URL string `json:"url"`
			} `json:"confluenceLocation"`
			WebLocation struct {
				URL string `json:"url"`
			} `json:"webLocation"`
		} `json:"location"`
		Metadata map[string]any `json:"metadata"`
		Score    float64        `json:"score"`
	} `json:"retrievalResults"`
}

// Retrieve runs a vector search and maps each hit to a Result. A query
// with no hits returns an empty slice, not an error.
func (c *Client) Retrieve(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	var reqBody retrieveRequest
	reqBody.RetrievalQuery.Text = query
	reqBody.RetrievalConfiguration.VectorSearchConfiguration.NumberOfResults = maxResults

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode retrieve request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/knowledgebases/%s/retrieve", c.endpoint, url.PathEscape(c.kbID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	sum := sha256.Sum256(payload)
	payloadHash := hex.EncodeToString(sum[:])
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve aws credentials: %w", err)
	}
	if err := c.signer.SignHTTP(ctx, creds, req, payloadHash, signingService, c.region, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieve from knowledge base: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("knowledge base returned %s: %s", resp.Status, body)
	}

	var out retrieveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode retrieve response: %w", err)
	}

	results := make([]Result, 0, len(out.RetrievalResults))
	for _, r := range out.RetrievalResults {
		md := Metadata{Source: "Unknown source"}
		switch {
		case r.Location.S3Location.URI != "":
			md.Location = r.Location.S3Location.URI
			md.Source = s3ObjectName(r.Location.S3Location.URI)
		case r.Location.ConfluenceLocation.URL != "":
			md.Location = r.Location.ConfluenceLocation.URL
			md.Source = r.Location.ConfluenceLocation.URL
		case r.Location.WebLocation.URL != "":
			md.Location = r.Location.WebLocation.URL
			md.Source = "Web source"
		}
		if title, ok := r.Metadata["title"].(string); ok {
			md.Title = title
		}
		if excerpt, ok := r.Metadata["excerpt"].(string); ok {
			md.Excerpt = excerpt
		}
		results = append(results, Result{
			Content:  r.Content.Text,
			Metadata: md,
			Score:    r.Score,
		})
	}
	return results, nil
}

func s3ObjectName(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 && i < len(uri)-1 {
		return uri[i+1:]
	}
	return "Unknown S3 file"
}
