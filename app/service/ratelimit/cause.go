package ratelimit

import (
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// Cause narrows down a failure that is not a quota problem.
type Cause int

const (
	CauseUnknown Cause = iota
	CauseAuth
	CauseNotFound
	CauseNetwork
	CauseServer
)

func (c Cause) String() string {
	switch c {
	case CauseAuth:
		return "auth"
	case CauseNotFound:
		return "not_found"
	case CauseNetwork:
		return "network"
	case CauseServer:
		return "server"
	default:
		return "unknown"
	}
}

var (
	statusRe  = regexp.MustCompile(`(?i)status(?:\s+code)?\s*[:=]?\s*(\d{3})\b`)
	apiKeyRe  = regexp.MustCompile(`(?i)api[ _-]?key|unauthenticated|permission[ _]denied`)
	networkRe = regexp.MustCompile(`(?i)no such host|connection refused|network is unreachable|connection reset`)
)

// StatusCode returns the HTTP status carried by err, or 0 when none is known.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}

	var sc statusCoder
	if errors.As(err, &sc) && sc.StatusCode() > 0 {
		return sc.StatusCode()
	}

	if m := statusRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}

	return 0
}

// Diagnose tells the user-facing reason of a failure that Classify reported as Transient.
func Diagnose(err error) Cause {
	if err == nil {
		return CauseUnknown
	}

	switch code := StatusCode(err); {
	case code == 401 || code == 403:
		return CauseAuth
	case code == 404:
		return CauseNotFound
	case code >= 500 && code <= 599:
		return CauseServer
	}

	msg := err.Error()
	if apiKeyRe.MatchString(msg) {
		return CauseAuth
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) || networkRe.MatchString(msg) {
		return CauseNetwork
	}

	if strings.Contains(msg, "503") || strings.Contains(msg, "500") {
		return CauseServer
	}

	return CauseUnknown
}
