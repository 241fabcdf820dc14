package chartsqlctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type request struct {
	method string
	path   string
	body   []byte
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("chartsqlctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "chartsql API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 2*time.Minute), "HTTP timeout (e.g. 90s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	req, err := buildRequest(fs.Arg(0), fs.Args()[1:])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + req.path
	code, responseBody, err := doRequest(ctx, client, req, endpoint, *apiKey)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func buildRequest(command string, args []string) (request, error) {
	switch strings.TrimSpace(command) {
	case "health":
		return request{method: http.MethodGet, path: "/v1/health"}, nil
	case "ready":
		return request{method: http.MethodGet, path: "/v1/ready"}, nil
	case "ask":
		askFlags := flag.NewFlagSet("ask", flag.ContinueOnError)
		askFlags.SetOutput(io.Discard)
		conversationID := askFlags.String("conversation", "", "continue an existing conversation")
		if err := askFlags.Parse(args); err != nil {
			return request{}, fmt.Errorf("ask: %w", err)
		}
		message := strings.TrimSpace(strings.Join(askFlags.Args(), " "))
		if message == "" {
			return request{}, fmt.Errorf("ask requires a message")
		}
		body, err := json.Marshal(map[string]string{
			"message":        message,
			"conversationId": strings.TrimSpace(*conversationID),
		})
		if err != nil {
			return request{}, err
		}
		return request{method: http.MethodPost, path: "/api/v1/chat/message", body: body}, nil
	case "history":
		historyFlags := flag.NewFlagSet("history", flag.ContinueOnError)
		historyFlags.SetOutput(io.Discard)
		page := historyFlags.Int("page", 0, "zero based page")
		limit := historyFlags.Int("limit", 20, "conversations per page")
		if err := historyFlags.Parse(args); err != nil {
			return request{}, fmt.Errorf("history: %w", err)
		}
		values := url.Values{}
		values.Set("page", strconv.Itoa(*page))
		values.Set("limit", strconv.Itoa(*limit))
		return request{method: http.MethodGet, path: "/api/v1/chat/history?" + values.Encode()}, nil
	case "conversation":
		if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
			return request{}, fmt.Errorf("conversation requires exactly one id")
		}
		return request{method: http.MethodGet, path: "/api/v1/chat/history/" + url.PathEscape(strings.TrimSpace(args[0]))}, nil
	default:
		return request{}, fmt.Errorf("unknown command %q", command)
	}
}

func doRequest(ctx context.Context, client *http.Client, r request, endpoint, apiKey string) (int, []byte, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: chartsqlctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                                 GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                                  GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  ask [-conversation id] <message...>    POST /api/v1/chat/message")
	_, _ = fmt.Fprintln(w, "  history [-page n] [-limit n]           GET /api/v1/chat/history")
	_, _ = fmt.Fprintln(w, "  conversation <id>                      GET /api/v1/chat/history/{id}")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
