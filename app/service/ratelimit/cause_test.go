package ratelimit

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 401, StatusCode(fmt.Errorf("call: %w", codedError{code: 401})))
	assert.Equal(t, 404, StatusCode(errors.New("primary: status 404: model not found")))
	assert.Equal(t, 503, StatusCode(errors.New("error, status code: 503, message: overloaded")))
	assert.Zero(t, StatusCode(errors.New("connection reset by peer")))
	assert.Zero(t, StatusCode(nil))
}

func TestDiagnose(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Cause
	}{
		{"nil", nil, CauseUnknown},
		{"401", errors.New("status 401: unauthorized"), CauseAuth},
		{"api key text", errors.New("API key not valid. Please pass a valid API key."), CauseAuth},
		{"coded 403", codedError{code: 403}, CauseAuth},
		{"404", errors.New("status 404: model not found"), CauseNotFound},
		{"500", errors.New("status 500: internal"), CauseServer},
		{"503 code", codedError{code: 503}, CauseServer},
		{"dns", fmt.Errorf("post: %w", &net.DNSError{Err: "no such host", Name: "example.invalid"}), CauseNetwork},
		{"refused text", errors.New("dial tcp 127.0.0.1:443: connect: connection refused"), CauseNetwork},
		{"other", errors.New("unexpected end of JSON input"), CauseUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Diagnose(tc.err))
		})
	}
}
