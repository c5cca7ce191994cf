package probe

import "fmt"

// ClassifyHTTPStatus maps a final HTTP status code to (isUp, errorType) per
// §4.A/§4.B: 1xx/2xx/3xx-that-resolved are up; 429 is a degraded rate-limit;
// other 4xx are degraded client errors; 5xx is down.
func ClassifyHTTPStatus(status int) (isUp bool, errType ErrorType) {
	switch {
	case status >= 100 && status < 200:
		return true, HTTPInformational
	case status >= 200 && status < 300:
		return true, HTTPSuccess
	case status >= 300 && status < 400:
		return true, HTTPRedirect
	case status == 429:
		return true, HTTPRateLimit // still "up" at the transport level; evaluator degrades it
	case status >= 400 && status < 500:
		return true, HTTPClientError
	case status >= 500:
		return false, HTTPServerError
	default:
		return false, SSLInvalid // unreachable in practice; status codes are always 1xx-5xx
	}
}

// Message builds the classifier's user-facing message: protocol prefix and,
// for HTTP, the status code (§4.B).
func Message(protocol string, errType ErrorType, statusCode int, detail string) string {
	if errType == ErrNone {
		return ""
	}
	if statusCode > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)%s", protocol, errType, statusCode, suffix(detail))
	}
	return fmt.Sprintf("%s: %s%s", protocol, errType, suffix(detail))
}

func suffix(detail string) string {
	if detail == "" {
		return ""
	}
	return " — " + detail
}
