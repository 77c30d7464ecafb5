package provider

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestDecodeJSONArrayStripsFence(t *testing.T) {
	text := "```json\n[{\"text\":\"What is a closure?\",\"difficulty\":\"Easy\"}]\n```"

	var out []struct {
		Text       string `json:"text"`
		Difficulty string `json:"difficulty"`
	}
	if err := decodeJSONArray(text, &out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out) != 1 || out[0].Text != "What is a closure?" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestDecodeJSONObjectSalvagesFromProse(t *testing.T) {
	text := "Here is the grading:\n{\"evaluations\":[{\"score\":7,\"feedback\":\"solid\"}],\"overallSummary\":\"good\"}\nHope this helps!"

	var out struct {
		Evaluations []struct {
			Score float64 `json:"score"`
		} `json:"evaluations"`
	}
	if err := decodeJSONObject(text, &out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out.Evaluations) != 1 || out.Evaluations[0].Score != 7 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	var out []any
	err := decodeJSONArray("   ", &out)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", err)
	}
}

func TestDecodeGarbagePayload(t *testing.T) {
	var out []any
	err := decodeJSONArray("I cannot comply with this request.", &out)
	if !errors.Is(err, ErrUnparseable) {
		t.Fatalf("want ErrUnparseable, got %v", err)
	}
}

func TestClassifyRetryability(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"rate limited", &googleapi.Error{Code: 429}, true},
		{"server error", &googleapi.Error{Code: 503}, true},
		{"bad request", &googleapi.Error{Code: 400}, false},
		{"unauthorized", &googleapi.Error{Code: 403}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"empty response", ErrEmptyResponse, true},
		{"unparseable", ErrUnparseable, false},
		{"missing key", ErrMissingAPIKey, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify("test", tc.err)
			if got.Retryable != tc.retryable {
				t.Fatalf("retryable = %v, want %v", got.Retryable, tc.retryable)
			}
			if IsRetryable(got) != tc.retryable {
				t.Fatalf("IsRetryable disagrees with classification")
			}
		})
	}
}

func TestClampScore(t *testing.T) {
	if got := clampScore(-2); got != 0 {
		t.Fatalf("clampScore(-2) = %v", got)
	}
	if got := clampScore(15); got != 10 {
		t.Fatalf("clampScore(15) = %v", got)
	}
	if got := clampScore(7.5); got != 7.5 {
		t.Fatalf("clampScore(7.5) = %v", got)
	}
}
