package sms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestClientSendRequest(t *testing.T) {
	const expectedURL = "http://sms.test/v1/messages"

	var capturedURL string
	var capturedHeaders http.Header

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload["recipient"] != "01712345678" {
			t.Fatalf("unexpected recipient %q", payload["recipient"])
		}
		if payload["message"] != "your payment was received" {
			t.Fatalf("unexpected message %q", payload["message"])
		}
		if payload["sender_id"] != "EASYQ" {
			t.Fatalf("unexpected sender id %q", payload["sender_id"])
		}

		return &http.Response{
			StatusCode: http.StatusAccepted,
			Body:       io.NopCloser(strings.NewReader(`{"status":"queued"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("http://sms.test/v1", "test-key", "EASYQ", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := client.Send(context.Background(), "01712345678", "your payment was received"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("Authorization") != "Bearer test-key" {
		t.Fatalf("authorization header missing")
	}
}

func TestClientSendGatewayError(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("upstream down")),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("http://sms.test/v1", "test-key", "", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	err = client.Send(context.Background(), "01712345678", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("http://sms.test", "", "EASYQ"); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewClient("", "key", "EASYQ"); err == nil {
		t.Fatal("expected error for missing base url")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
