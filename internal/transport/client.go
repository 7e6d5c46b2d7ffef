// Package transport wraps the HTTP calls a cycle makes and the network link
// they run over. Requests are synchronous; small ones are bounded by a total
// timeout, image downloads by an inactivity timer.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
)

// Header names exchanged with the image server.
const (
	HeaderDeviceMAC      = "X-Device-MAC"
	HeaderBatteryVoltage = "X-Battery-Voltage"
	HeaderImageHash      = "X-Image-Hash"
	HeaderImageName      = "X-Image-Name"
	HeaderDeviceID       = "X-Device-ID"
)

const (
	maxSmallBody     = 64 << 10
	progressInterval = 100 << 10
	readChunk        = 4 << 10
)

var errStalled = errors.New("no data received within idle timeout")

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// Options configures a Client.
type Options struct {
	Timeout     time.Duration
	IdleTimeout time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Client issues blocking requests with header injection.
type Client struct {
	http        *http.Client
	timeout     time.Duration
	idleTimeout time.Duration
	logger      *slog.Logger
}

// New builds a Client. The underlying http.Client must not carry its own
// Timeout; deadlines are applied per request.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = 10 * time.Second
	}
	return &Client{http: hc, timeout: timeout, idleTimeout: idle, logger: logger}
}

// IdentityHeaders builds the device identification headers. The battery
// header is omitted when the voltage was not measured.
func IdentityHeaders(mac string, volts float64, measured bool) http.Header {
	h := http.Header{}
	if mac != "" {
		h.Set(HeaderDeviceMAC, mac)
	}
	if measured {
		h.Set(HeaderBatteryVoltage, strconv.FormatFloat(volts, 'f', 2, 64))
	}
	return h
}

// Get performs a small GET bounded by the client timeout. Any status is
// returned to the caller; only transport failures are errors.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.do(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSmallBody+1))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to read response").
			WithContext("url", url).Build()
	}
	if len(body) > maxSmallBody {
		return nil, ferrors.ResourceError("response body too large").
			WithContext("url", url).
			WithContext("limit", maxSmallBody).
			Build()
	}
	return &Response{Status: resp.StatusCode, Body: body, Header: resp.Header}, nil
}

// Download fetches an image. It requires status 200 and a Content-Length in
// (0, maxBytes], reads exactly that many bytes and aborts when no byte
// arrives for the idle timeout. Slow but steady transfers are not cut off.
func (c *Client) Download(ctx context.Context, url string, headers http.Header, maxBytes int64) (*Response, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	idle := time.AfterFunc(c.idleTimeout, func() { cancel(errStalled) })
	defer idle.Stop()

	resp, err := c.do(ctx, url, headers)
	if err != nil {
		return nil, c.stalledOr(ctx, err, url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ferrors.NetworkError(fmt.Sprintf("image request returned HTTP %d", resp.StatusCode)).
			WithContext("url", url).
			WithContext("status", resp.StatusCode).
			Build()
	}

	length := resp.ContentLength
	if length <= 0 || length > maxBytes {
		return nil, ferrors.ResourceError(fmt.Sprintf("invalid content length %d (limit %d)", length, maxBytes)).
			WithContext("url", url).
			Build()
	}

	body := make([]byte, length)
	var read, nextProgress int64 = 0, progressInterval
	for read < length {
		end := read + readChunk
		if end > length {
			end = length
		}
		n, rerr := resp.Body.Read(body[read:end])
		if n > 0 {
			read += int64(n)
			idle.Reset(c.idleTimeout)
			if read >= nextProgress {
				c.logger.Debug("Download progress", logfields.URL(url), logfields.Bytes(read), slog.Int64("total", length))
				nextProgress += progressInterval
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) && read == length {
				break
			}
			if errors.Is(rerr, io.EOF) {
				return nil, ferrors.NetworkError(fmt.Sprintf("incomplete download: %d of %d bytes", read, length)).
					WithContext("url", url).Build()
			}
			return nil, c.stalledOr(ctx, rerr, url)
		}
	}

	return &Response{Status: resp.StatusCode, Body: body, Header: resp.Header}, nil
}

func (c *Client) do(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid request URL").
			WithContext("url", url).Build()
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "request failed").
			NextCycle().
			WithContext("url", url).Build()
	}
	return resp, nil
}

func (c *Client) stalledOr(ctx context.Context, err error, url string) error {
	if errors.Is(context.Cause(ctx), errStalled) {
		return ferrors.WrapError(errStalled, ferrors.CategoryNetwork, "download stalled").
			NextCycle().
			WithContext("url", url).
			WithContext("idle_timeout", c.idleTimeout.String()).
			Build()
	}
	if ferrors.IsClassified(err) {
		return err
	}
	return ferrors.WrapError(err, ferrors.CategoryNetwork, "download failed").
		NextCycle().
		WithContext("url", url).Build()
}
