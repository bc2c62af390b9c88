package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpgraderChecksConfiguredOrigin(t *testing.T) {
	up := newUpgrader("http://example.com")

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://example.com")
	assert.True(t, up.CheckOrigin(r))

	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, up.CheckOrigin(r))
}

func TestUpgraderAllowsAnyOriginWhenUnconfigured(t *testing.T) {
	up := newUpgrader("")

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://anywhere.example")
	assert.True(t, up.CheckOrigin(r))
}
