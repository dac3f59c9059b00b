package repair

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordan/capsule-engine/internal/llm"
)

// fakeSchema accepts any JSON object containing a non-empty "title" string.
type fakeSchema struct{}

func (fakeSchema) Name() string        { return "fake" }
func (fakeSchema) Description() string { return "an object with a title" }
func (fakeSchema) Validate(jsonText string) error {
	if !strings.Contains(jsonText, `"title"`) {
		return errors.New("missing required field: title")
	}
	return nil
}

// fakeClient replays queued responses and records calls.
type fakeClient struct {
	responses []string
	err       error
	calls     int
}

func (f *fakeClient) GenerateText(_ context.Context, _, _ string, _ llm.Options) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("fakeClient: no responses queued")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeClient) Close() error { return nil }

func TestRepairValidInputNeedsNoModelCall(t *testing.T) {
	client := &fakeClient{}
	engine := NewEngine(client, 5, zerolog.Nop())

	got, err := engine.Repair(context.Background(), fakeSchema{}, `{"title": "ok"}`, "ctx")

	require.NoError(t, err)
	assert.Contains(t, got, `"title": "ok"`)
	assert.Equal(t, 0, client.calls)
}

func TestRepairDeterministicFixesAlone(t *testing.T) {
	client := &fakeClient{}
	engine := NewEngine(client, 5, zerolog.Nop())

	raw := "```json\n{\"title\": \"\\frac{1}{2}\"}\n```"
	got, err := engine.Repair(context.Background(), fakeSchema{}, raw, "ctx")

	require.NoError(t, err)
	assert.Contains(t, got, `\\frac{1}{2}`)
	assert.Equal(t, 0, client.calls, "fences and escapes should not need the model")
}

func TestRepairModelFixesDocument(t *testing.T) {
	client := &fakeClient{responses: []string{`{"title": "recovered"}`}}
	engine := NewEngine(client, 5, zerolog.Nop())

	got, err := engine.Repair(context.Background(), fakeSchema{}, `{"body": "no title"}`, "ctx")

	require.NoError(t, err)
	assert.Contains(t, got, "recovered")
	assert.Equal(t, 1, client.calls)
}

func TestRepairExhaustsAttempts(t *testing.T) {
	const maxAttempts = 5
	bad := make([]string, maxAttempts-1)
	for i := range bad {
		bad[i] = fmt.Sprintf(`{"body": "still wrong %d"}`, i)
	}
	client := &fakeClient{responses: bad}
	engine := NewEngine(client, maxAttempts, zerolog.Nop())

	_, err := engine.Repair(context.Background(), fakeSchema{}, `{"body": "wrong"}`, "ctx")

	var exhausted *AttemptsExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, maxAttempts, exhausted.Attempts)
	assert.Equal(t, maxAttempts-1, client.calls, "model is called between attempts, not after the last")
	assert.ErrorContains(t, err, "missing required field")
}

func TestRepairModelFailureEscalates(t *testing.T) {
	client := &fakeClient{err: errors.New("quota exceeded")}
	engine := NewEngine(client, 5, zerolog.Nop())

	_, err := engine.Repair(context.Background(), fakeSchema{}, `{"body": "wrong"}`, "ctx")

	var callErr *RepairCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, 1, callErr.Attempt)
	assert.Equal(t, 1, client.calls, "a failed repair call should not be retried")
}

func TestRepairUnparseableAfterAllAttempts(t *testing.T) {
	client := &fakeClient{responses: []string{"also not json", "nope", "still no"}}
	engine := NewEngine(client, 4, zerolog.Nop())

	_, err := engine.Repair(context.Background(), fakeSchema{}, "not json at all", "ctx")

	var exhausted *AttemptsExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorContains(t, err, "invalid JSON")
}
