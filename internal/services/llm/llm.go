// Package llm requests transcript summaries from an OpenAI-compatible chat
// completion endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelvault/internal/logging"
)

// userInstruction keeps the user turn neutral so it cannot contradict the
// per-category system prompt.
const userInstruction = "위 System Prompt의 지침에 따라, 아래 [원문 내용]을 분석 및 처리하여 지정된 포맷으로 출력해주세요."

// Client talks to the summarization endpoint. Summarization failures never
// abort a job: every failure mode maps to a human-readable placeholder string
// that flows through the rest of the pipeline like a real summary.
type Client struct {
	endpoint       string
	apiKey         string
	model          string
	maxInputChars  int
	temperature    float64
	connectTimeout time.Duration
	readTimeout    time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
}

// Options configures a Client.
type Options struct {
	APIURL         string
	APIKey         string
	Model          string
	MaxInputChars  int
	Temperature    float64
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// NewClient builds a summarization client. The connect timeout bounds TCP
// dialing so a powered-off GPU server fails fast; the read timeout allows the
// model a long processing window.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 1800 * time.Second
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = 40000
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
	}
	return &Client{
		endpoint:       completionURL(opts.APIURL),
		apiKey:         opts.APIKey,
		model:          strings.TrimSpace(opts.Model),
		maxInputChars:  opts.MaxInputChars,
		temperature:    opts.Temperature,
		connectTimeout: opts.ConnectTimeout,
		readTimeout:    opts.ReadTimeout,
		httpClient:     &http.Client{Transport: transport, Timeout: opts.ReadTimeout},
		logger:         logger,
	}
}

func completionURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize sends the transcript with the given system instruction and
// returns the model's summary. The transcript is truncated to the configured
// character budget before sending. The error return is reserved for request
// construction problems; transport and server failures produce placeholder
// summaries instead.
func (c *Client) Summarize(ctx context.Context, systemInstruction, transcript string) (string, error) {
	safeText := truncateRunes(transcript, c.maxInputChars)
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: userInstruction + "\n\n[원문 내용]: " + safeText},
		},
		Temperature: c.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode summary request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("requesting summary",
		logging.String("endpoint", c.endpoint),
		logging.Int("input_chars", len([]rune(safeText))))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		placeholder := c.classifyTransportFailure(err)
		logger.Warn("summary request failed", logging.Error(err))
		return placeholder, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		logger.Warn("summary server returned error status",
			logging.Int("status", resp.StatusCode))
		return fmt.Sprintf("[단순 요약] 서버 통신 실패. (Status: %d - 내부 에러)", resp.StatusCode), nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		logger.Warn("summary response unparsable", logging.Error(err))
		return "[에러] 통신 오류: 응답 형식을 해석할 수 없습니다.", nil
	}
	return parsed.Choices[0].Message.Content, nil
}

// classifyTransportFailure maps transport errors to the distinct placeholder
// strings operators recognize: connect timeout means the server is likely
// powered off, read timeout means the model is overloaded, refusal means the
// service process is down.
func (c *Client) classifyTransportFailure(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) && opErr.Op == "dial" {
			if opErr.Timeout() {
				return "[에러] 서버가 꺼져있거나 응답하지 않습니다. (Connect Timeout)"
			}
			return "[에러] 서버 연결이 거부되었습니다. (서버 다운 추정)"
		}
		if urlErr.Timeout() {
			return "[에러] AI 모델 처리 시간이 초과되었습니다. (Read Timeout)"
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "[에러] AI 모델 처리 시간이 초과되었습니다. (Read Timeout)"
	}
	return fmt.Sprintf("[에러] 통신 오류: %v", err)
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
