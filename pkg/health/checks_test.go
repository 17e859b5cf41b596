package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPCheck_Ready(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ready, err := HTTPCheck(nil, server.URL)(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !ready {
		t.Error("Expected ready for 200 response")
	}
}

func TestHTTPCheck_NotReadyOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ready, err := HTTPCheck(nil, server.URL)(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if ready {
		t.Error("Expected not ready for 503 response")
	}
}

func TestHTTPCheck_ConnectionRefusedIsNotReady(t *testing.T) {
	// A closed server means not-ready, never a fatal probe error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	ready, err := HTTPCheck(nil, url)(context.Background())
	if err != nil {
		t.Fatalf("Expected no error for refused connection, got %v", err)
	}
	if ready {
		t.Error("Expected not ready for refused connection")
	}
}

func TestHTTPCheck_MalformedURLIsFatal(t *testing.T) {
	_, err := HTTPCheck(nil, "not a url")(context.Background())
	if err == nil {
		t.Fatal("Expected error for malformed URL")
	}
}

func TestTCPCheck_Ready(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer listener.Close()

	ready, err := TCPCheck(listener.Addr().String(), time.Second)(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !ready {
		t.Error("Expected ready for listening port")
	}
}

func TestTCPCheck_ClosedPortIsNotReady(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	ready, err := TCPCheck(addr, 200*time.Millisecond)(context.Background())
	if err != nil {
		t.Fatalf("Expected no error for closed port, got %v", err)
	}
	if ready {
		t.Error("Expected not ready for closed port")
	}
}

func TestTCPCheck_BadAddressIsFatal(t *testing.T) {
	_, err := TCPCheck("no-port-here", time.Second)(context.Background())
	if err == nil {
		t.Fatal("Expected error for address without port")
	}
}

func TestCommandCheck_ExitZeroIsReady(t *testing.T) {
	ready, err := CommandCheck("true")(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !ready {
		t.Error("Expected ready for exit status 0")
	}
}

func TestCommandCheck_ExitNonZeroIsNotReady(t *testing.T) {
	ready, err := CommandCheck("false")(context.Background())
	if err != nil {
		t.Fatalf("Expected no error for non-zero exit, got %v", err)
	}
	if ready {
		t.Error("Expected not ready for exit status 1")
	}
}

func TestCommandCheck_MissingBinaryIsFatal(t *testing.T) {
	_, err := CommandCheck("definitely-not-a-real-binary-1f2e3d")(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing binary")
	}
}
