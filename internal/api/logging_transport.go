package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/douhashi/better-labels/internal/logger"
)

const bodyPreviewLimit = 200

// loggingRoundTripper はラベルAPIへのリクエスト/レスポンスをログ出力する
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger logger.Logger
}

// RoundTrip implements http.RoundTripper.
func (rt *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	rt.logger.Debug("label_api_request",
		"method", req.Method,
		"url", req.URL.String(),
	)

	resp, err := rt.base.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		rt.logger.Error("label_api_error",
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", duration.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	if err := rt.logResponse(req, resp, duration); err != nil {
		return nil, err
	}
	return resp, nil
}

func (rt *loggingRoundTripper) logResponse(req *http.Request, resp *http.Response, duration time.Duration) error {
	fields := []interface{}{
		"method", req.Method,
		"url", req.URL.String(),
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	}

	if resp.Body != nil {
		bodyBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			rt.logger.Error("failed_to_read_response_body", "error", err.Error())
			return err
		}
		// 読み出したボディを戻しておく
		resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		fields = append(fields, "body_preview", preview(bodyBytes))
	}

	rt.logger.Debug("label_api_response", fields...)
	return nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > bodyPreviewLimit {
		return s[:bodyPreviewLimit] + "..."
	}
	return s
}
