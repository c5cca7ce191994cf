package probe

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/bytedance/mockey"
	"github.com/stretchr/testify/assert"

	"github.com/ysicing/pulseguard/internal/models"
)

// These cases patch (*http.Client).Do directly, the same network-boundary
// mocking the teacher uses for its k8s client calls, so a deterministic HTTP
// response/error can be asserted without ever dialing out.
func TestProbeHTTP_ServerErrorStatusIsDown(t *testing.T) {
	mockey.PatchConvey("500 response classifies as down", t, func() {
		mockey.Mock((*http.Client).Do).Return(&http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("")),
			Request:    &http.Request{URL: mustParseURL(t, "https://example.com/")},
		}, nil).Build()

		m := &models.Monitor{Protocol: models.ProtocolHTTP, Target: "https://example.com/", TimeoutMs: 1000}
		result := ProbeHTTP(context.Background(), m)

		assert.False(t, result.IsUp)
		assert.Equal(t, HTTPServerError, result.ErrorType)
	})
}

func TestProbeHTTP_SuccessStatusIsUp(t *testing.T) {
	mockey.PatchConvey("200 response classifies as up", t, func() {
		mockey.Mock((*http.Client).Do).Return(&http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("ok")),
			Request:    &http.Request{URL: mustParseURL(t, "https://example.com/")},
		}, nil).Build()

		m := &models.Monitor{Protocol: models.ProtocolHTTP, Target: "https://example.com/", TimeoutMs: 1000}
		result := ProbeHTTP(context.Background(), m)

		assert.True(t, result.IsUp)
	})
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	assert.NoError(t, err)
	return u
}
