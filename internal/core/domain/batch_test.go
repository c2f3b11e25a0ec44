package domain

import (
	"testing"
	"time"
)

func TestWithDefaultsFillsEveryUnsetField(t *testing.T) {
	got := BatchOptions{}.WithDefaults(DefaultBatchOptions())

	if got.BatchSize != 5 || got.MaxRetries != 3 {
		t.Fatalf("int defaults not applied: %+v", got)
	}
	if got.RetryDelay != 2*time.Second || got.OperationTimeout != 60*time.Second {
		t.Fatalf("duration defaults not applied: %+v", got)
	}
	if !got.NormalizeKeysOn() || !got.FilterPlaceholdersOn() {
		t.Fatalf("boolean defaults not applied: normalize=%v filter=%v",
			got.NormalizeKeysOn(), got.FilterPlaceholdersOn())
	}
	if got.NormalizeKeys == nil || got.FilterPlaceholders == nil {
		t.Fatal("resolved options must carry explicit boolean values")
	}
}

func TestWithDefaultsKeepsExplicitFalse(t *testing.T) {
	opts := BatchOptions{
		NormalizeKeys:      BoolRef(false),
		FilterPlaceholders: BoolRef(false),
	}
	got := opts.WithDefaults(DefaultBatchOptions())

	if got.NormalizeKeysOn() || got.FilterPlaceholdersOn() {
		t.Fatalf("explicit false overridden by defaults: %+v", got)
	}
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	opts := BatchOptions{
		BatchSize:        2,
		MaxRetries:       7,
		RetryDelay:       time.Second,
		OperationTimeout: 10 * time.Second,
	}
	got := opts.WithDefaults(DefaultBatchOptions())

	if got.BatchSize != 2 || got.MaxRetries != 7 {
		t.Fatalf("explicit int values changed: %+v", got)
	}
	if got.RetryDelay != time.Second || got.OperationTimeout != 10*time.Second {
		t.Fatalf("explicit durations changed: %+v", got)
	}
}

func TestWithDefaultsClampsNegativeRetries(t *testing.T) {
	got := BatchOptions{MaxRetries: -1}.WithDefaults(DefaultBatchOptions())
	if got.MaxRetries != 0 {
		t.Fatalf("negative retries must mean no retries, got %d", got.MaxRetries)
	}
}

func TestWithDefaultsResolvesAgainstProcessDefaults(t *testing.T) {
	processDefaults := DefaultBatchOptions()
	processDefaults.MaxRetries = 1
	processDefaults.FilterPlaceholders = BoolRef(false)

	got := BatchOptions{}.WithDefaults(processDefaults)
	if got.MaxRetries != 1 {
		t.Fatalf("expected process-level retry default, got %d", got.MaxRetries)
	}
	if got.FilterPlaceholdersOn() {
		t.Fatal("expected process-level filter default to apply")
	}
}
