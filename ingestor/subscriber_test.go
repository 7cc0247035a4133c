package ingestor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchAcksProcessedEvent(t *testing.T) {
	store := newFakeStore()
	sub := &Subscriber{pipeline: newTestPipeline(
		&fakeExtractor{text: "full ocr text"}, &fakeDeleter{}, store, &mockLLMClient{response: analysisJSON})}

	ack := sub.dispatch(context.Background(), []byte(`{"bucket": "consent-forms", "name": "form.pdf"}`))

	assert.True(t, ack)
	assert.Contains(t, store.consents, "form")
}

func TestDispatchAcksMalformedEvent(t *testing.T) {
	ocr := &fakeExtractor{}
	sub := &Subscriber{pipeline: newTestPipeline(ocr, &fakeDeleter{}, newFakeStore(), &mockLLMClient{})}

	ack := sub.dispatch(context.Background(), []byte("not json"))

	assert.True(t, ack)
	assert.Zero(t, ocr.calls)
}

func TestDispatchNacksPipelineFailure(t *testing.T) {
	sub := &Subscriber{pipeline: newTestPipeline(
		&fakeExtractor{err: errors.New("vision timeout")}, &fakeDeleter{}, newFakeStore(), &mockLLMClient{})}

	ack := sub.dispatch(context.Background(), []byte(`{"bucket": "consent-forms", "name": "form.pdf"}`))

	assert.False(t, ack)
}
