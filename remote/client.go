package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/property_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/mmdatafocus/property_backend/remote")

// APIError is a non-2xx answer from the remote API or a storage bucket.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, e.Body)
}

type Options struct {
	BaseURL         string
	ClientID        string
	ClientSecret    string
	Timeout         time.Duration
	RateLimitPerMin int
	HTTPClient      *http.Client
}

// Client talks to the property-management API. Every call is bounded by the
// HTTP client timeout and, when configured, a per-minute rate limit.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
	limiter      <-chan time.Time
}

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		return nil, errors.New("remote api base url is empty")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		http:         httpClient,
	}
	if opts.RateLimitPerMin > 0 {
		c.limiter = time.Tick(time.Minute / time.Duration(opts.RateLimitPerMin))
	}
	return c, nil
}

// NewClientFromEnv builds a client from REMOTE_* variables.
func NewClientFromEnv() (*Client, error) {
	if utils.EnvStringDefault("REMOTE_CLIENT_ID", "") == "" {
		return nil, errors.New("REMOTE_CLIENT_ID is empty")
	}
	return NewClient(Options{
		BaseURL:         utils.EnvStringDefault("REMOTE_API_BASE_URL", "https://api.buildium.com/v1"),
		ClientID:        utils.EnvStringDefault("REMOTE_CLIENT_ID", ""),
		ClientSecret:    utils.EnvStringDefault("REMOTE_CLIENT_SECRET", ""),
		Timeout:         time.Duration(utils.EnvIntDefault("REMOTE_TIMEOUT_SECONDS", 30)) * time.Second,
		RateLimitPerMin: utils.EnvIntDefault("REMOTE_RATE_LIMIT_PER_MIN", 0),
	})
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.limiter:
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, in, out any) error {
	ctx, span := tracer.Start(ctx, "remote "+method+" "+path)
	defer span.End()

	if err := c.wait(ctx); err != nil {
		return err
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("x-buildium-client-id", c.clientID)
	req.Header.Set("x-buildium-client-secret", c.clientSecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func (c *Client) CreateRental(ctx context.Context, in RentalCreateRequest) (*Rental, error) {
	var out Rental
	if err := c.do(ctx, http.MethodPost, "/rentals", nil, in, &out); err != nil {
		return nil, err
	}
	if out.Id <= 0 {
		return nil, errors.New("remote rental create returned no id")
	}
	return &out, nil
}

func (c *Client) UpdateRental(ctx context.Context, id int64, in RentalUpdateRequest) (*Rental, error) {
	var out Rental
	if err := c.do(ctx, http.MethodPut, "/rentals/"+strconv.FormatInt(id, 10), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListRentalUnits(ctx context.Context, propertyId int64) ([]RentalUnit, error) {
	params := url.Values{}
	params.Set("propertyids", strconv.FormatInt(propertyId, 10))
	var raw rawList
	if err := c.do(ctx, http.MethodGet, "/rentals/units", params, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[RentalUnit](raw)
}

func (c *Client) CreateRentalOwner(ctx context.Context, in RentalOwnerCreateRequest) (*RentalOwner, error) {
	var out RentalOwner
	if err := c.do(ctx, http.MethodPost, "/rentals/owners", nil, in, &out); err != nil {
		return nil, err
	}
	if out.Id <= 0 {
		return nil, errors.New("remote owner create returned no id")
	}
	return &out, nil
}

func (c *Client) CreateUploadRequest(ctx context.Context, in FileUploadRequest) (*UploadTicket, error) {
	var out UploadTicket
	if err := c.do(ctx, http.MethodPost, "/files/uploadrequests", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListFiles(ctx context.Context, entityType string, entityId int64) ([]RemoteFile, error) {
	params := url.Values{}
	params.Set("entitytype", entityType)
	params.Set("entityid", strconv.FormatInt(entityId, 10))
	var raw rawList
	if err := c.do(ctx, http.MethodGet, "/files", params, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[RemoteFile](raw)
}

// UploadToBucket posts data to the ticket's bucket with exactly the ticket's
// form fields followed by the file part. No API credentials are sent.
func (c *Client) UploadToBucket(ctx context.Context, ticket *UploadTicket, fileName, mimeType string, data []byte) error {
	ctx, span := tracer.Start(ctx, "remote bucket upload")
	defer span.End()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range ticket.FormData {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	name := utils.FirstNonEmpty(ticket.PhysicalFileName, fileName)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ticket.BucketUrl, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Method: http.MethodPost, URL: ticket.BucketUrl, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}
	return nil
}

func decodeList[T any](raw rawList) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
