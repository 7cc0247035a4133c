package ingestor

import (
	"context"
	"errors"
	"testing"

	"github.com/SaiNageswarS/consent-core/db"
	"github.com/SaiNageswarS/consent-core/llm"
	"github.com/SaiNageswarS/consent-core/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const analysisJSON = `{
	"summary": "Jane consented to surgery.",
	"entities": {
		"patient_name": "Jane Roe",
		"patient_email": "Jane@Example.com",
		"date_of_birth": "N/A",
		"doctor_name": "Dr. Kim",
		"procedure": "Appendectomy",
		"date": "2024-01-09"
	},
	"consented_items": ["anesthesia", "surgery"],
	"declined_items": ["blood transfusion"],
	"patient_id": "jane@example.com"
}`

type mockLLMClient struct {
	response string
	err      error
}

func (m *mockLLMClient) GetModel() string { return "mock-model" }

func (m *mockLLMClient) GenerateInference(
	ctx context.Context,
	messages []llm.Message,
	callback func(string) error,
	options ...llm.LLMOption,
) error {
	if m.err != nil {
		return m.err
	}
	return callback(m.response)
}

type fakeExtractor struct {
	text        string
	resultBlobs []string
	err         error
	calls       int
}

func (f *fakeExtractor) ExtractText(ctx context.Context, bucket, name string) (string, []string, error) {
	f.calls++
	return f.text, f.resultBlobs, f.err
}

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) Delete(ctx context.Context, bucket, name string) error {
	f.deleted = append(f.deleted, name)
	return f.err
}

type fakeStore struct {
	consents map[string]db.ConsentModel
	indexes  map[string]db.EntityIndexModel
	patients map[string]db.PatientModel

	consentErr error
	indexErr   error
	patientErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		consents: map[string]db.ConsentModel{},
		indexes:  map[string]db.EntityIndexModel{},
		patients: map[string]db.PatientModel{},
	}
}

func (f *fakeStore) SaveConsent(ctx context.Context, m db.ConsentModel) error {
	if f.consentErr != nil {
		return f.consentErr
	}
	f.consents[m.DocumentID] = m
	return nil
}

func (f *fakeStore) SaveEntityIndex(ctx context.Context, m db.EntityIndexModel) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.indexes[m.DocumentID] = m
	return nil
}

func (f *fakeStore) FindPatientByEmail(ctx context.Context, email string) (*db.PatientModel, error) {
	if f.patientErr != nil {
		return nil, f.patientErr
	}
	for _, p := range f.patients {
		if p.Email == email {
			copied := p
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SavePatient(ctx context.Context, m db.PatientModel) error {
	if f.patientErr != nil {
		return f.patientErr
	}
	f.patients[m.PatientID] = m
	return nil
}

func parseFixture(raw string) (*prompts.ConsentAnalysis, error) {
	return prompts.ParseAnalysis(raw)
}

func newTestPipeline(ocr *fakeExtractor, blobs *fakeDeleter, store *fakeStore, client llm.LLMClient) *Pipeline {
	return NewPipeline(ocr, blobs, store, client)
}

func TestProcessEventIgnoresNonPDF(t *testing.T) {
	ocr := &fakeExtractor{}
	store := newFakeStore()
	pipeline := newTestPipeline(ocr, &fakeDeleter{}, store, &mockLLMClient{})

	err := pipeline.ProcessEvent(context.Background(), StorageEvent{Bucket: "consent-forms", Name: "notes.txt"})

	require.NoError(t, err)
	assert.Zero(t, ocr.calls)
	assert.Empty(t, store.consents)
}

func TestProcessEventHappyPath(t *testing.T) {
	ocr := &fakeExtractor{text: "full ocr text", resultBlobs: []string{"form-ocr-output/output-1.json"}}
	blobs := &fakeDeleter{}
	store := newFakeStore()
	pipeline := newTestPipeline(ocr, blobs, store, &mockLLMClient{response: analysisJSON})

	err := pipeline.ProcessEvent(context.Background(), StorageEvent{Bucket: "consent-forms", Name: "form.pdf"})
	require.NoError(t, err)

	consent, ok := store.consents["form"]
	require.True(t, ok)
	assert.Equal(t, "form.pdf", consent.Filename)
	assert.Equal(t, "full ocr text", consent.FullText)
	assert.NotEmpty(t, consent.AiAnalysisJson)

	index, ok := store.indexes["form"]
	require.True(t, ok)
	assert.Equal(t, "Jane Roe", index.PatientName)
	assert.Equal(t, "jane@example.com", index.PatientEmail)
	assert.Equal(t, []string{"blood transfusion"}, index.DeclinedItems)

	// OCR output is cleaned up after processing.
	assert.Equal(t, []string{"form-ocr-output/output-1.json"}, blobs.deleted)
}

func TestProcessEventOcrFailureAborts(t *testing.T) {
	ocr := &fakeExtractor{err: errors.New("vision timeout")}
	blobs := &fakeDeleter{}
	store := newFakeStore()
	pipeline := newTestPipeline(ocr, blobs, store, &mockLLMClient{response: analysisJSON})

	err := pipeline.ProcessEvent(context.Background(), StorageEvent{Bucket: "consent-forms", Name: "form.pdf"})

	require.Error(t, err)
	assert.Empty(t, store.consents)
	assert.Empty(t, blobs.deleted)
}

func TestProcessEventModelFailureUsesFallback(t *testing.T) {
	ocr := &fakeExtractor{text: "full ocr text", resultBlobs: []string{"form-ocr-output/output-1.json"}}
	blobs := &fakeDeleter{}
	store := newFakeStore()
	pipeline := newTestPipeline(ocr, blobs, store, &mockLLMClient{err: errors.New("model unavailable")})

	err := pipeline.ProcessEvent(context.Background(), StorageEvent{Bucket: "consent-forms", Name: "form.pdf"})
	require.NoError(t, err)

	consent, ok := store.consents["form"]
	require.True(t, ok)
	assert.Contains(t, consent.AiAnalysisJson, "AI analysis failed")

	// Fallback entities are all N/A, so the index carries no search terms
	// and no account is provisioned.
	index, ok := store.indexes["form"]
	require.True(t, ok)
	assert.Empty(t, index.SearchTerms)
	assert.Empty(t, store.patients)

	assert.Equal(t, []string{"form-ocr-output/output-1.json"}, blobs.deleted)
}

func TestProcessEventConsentWriteFailureAborts(t *testing.T) {
	ocr := &fakeExtractor{text: "full ocr text", resultBlobs: []string{"form-ocr-output/output-1.json"}}
	blobs := &fakeDeleter{}
	store := newFakeStore()
	store.consentErr = errors.New("mongo down")
	pipeline := newTestPipeline(ocr, blobs, store, &mockLLMClient{response: analysisJSON})

	err := pipeline.ProcessEvent(context.Background(), StorageEvent{Bucket: "consent-forms", Name: "form.pdf"})

	require.Error(t, err)
	assert.Empty(t, store.indexes)
	assert.Empty(t, blobs.deleted)
}

func TestProcessEventIndexFailureIsSwallowed(t *testing.T) {
	ocr := &fakeExtractor{text: "full ocr text", resultBlobs: []string{"form-ocr-output/output-1.json"}}
	blobs := &fakeDeleter{}
	store := newFakeStore()
	store.indexErr = errors.New("mongo down")
	pipeline := newTestPipeline(ocr, blobs, store, &mockLLMClient{response: analysisJSON})

	err := pipeline.ProcessEvent(context.Background(), StorageEvent{Bucket: "consent-forms", Name: "form.pdf"})

	require.NoError(t, err)
	assert.Contains(t, store.consents, "form")
	assert.Equal(t, []string{"form-ocr-output/output-1.json"}, blobs.deleted)
}

func TestProcessEventReplacesExistingDocument(t *testing.T) {
	ocr := &fakeExtractor{text: "second pass text"}
	store := newFakeStore()
	store.consents["form"] = db.ConsentModel{DocumentID: "form", FullText: "first pass text"}
	pipeline := newTestPipeline(ocr, &fakeDeleter{}, store, &mockLLMClient{response: analysisJSON})

	err := pipeline.ProcessEvent(context.Background(), StorageEvent{Bucket: "consent-forms", Name: "form.pdf"})
	require.NoError(t, err)

	require.Len(t, store.consents, 1)
	assert.Equal(t, "second pass text", store.consents["form"].FullText)
}

func TestBuildEntityIndexSearchTerms(t *testing.T) {
	analysis, err := parseFixture(analysisJSON)
	require.NoError(t, err)

	index := buildEntityIndex("form", analysis, 42)

	assert.Contains(t, index.SearchTerms, "patient_name:Jane Roe")
	assert.Contains(t, index.SearchTerms, "jane roe")
	assert.Contains(t, index.SearchTerms, "doctor_name:Dr. Kim")
	assert.Contains(t, index.SearchTerms, "dr. kim")
	assert.Contains(t, index.SearchTerms, "jane@example.com")

	// N/A entities contribute nothing.
	assert.NotContains(t, index.Entities, "date_of_birth")
	for _, term := range index.SearchTerms {
		assert.NotContains(t, term, "N/A")
	}

	assert.Equal(t, "jane@example.com", index.PatientEmail)
	assert.Equal(t, int64(42), index.ProcessedTimestamp)
}

func TestUpsertCreatesAccountWithDefaultPassword(t *testing.T) {
	store := newFakeStore()
	pipeline := newTestPipeline(&fakeExtractor{}, &fakeDeleter{}, store, &mockLLMClient{})

	analysis, err := parseFixture(analysisJSON)
	require.NoError(t, err)
	require.NoError(t, pipeline.upsertPatientAccount(context.Background(), analysis))

	require.Len(t, store.patients, 1)
	var account db.PatientModel
	for _, p := range store.patients {
		account = p
	}

	assert.Equal(t, "jane@example.com", account.Email)
	assert.Equal(t, "Jane Roe", account.PatientName)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("jane123!")))
}

func TestUpsertPreservesExistingCredential(t *testing.T) {
	store := newFakeStore()
	existing := db.NewPatientModel("jane@example.com")
	existing.PatientName = "J. Roe"
	existing.PasswordHash = "patient-chosen-hash"
	store.patients[existing.PatientID] = *existing

	pipeline := newTestPipeline(&fakeExtractor{}, &fakeDeleter{}, store, &mockLLMClient{})

	analysis, err := parseFixture(analysisJSON)
	require.NoError(t, err)
	require.NoError(t, pipeline.upsertPatientAccount(context.Background(), analysis))

	require.Len(t, store.patients, 1)
	updated := store.patients[existing.PatientID]
	assert.Equal(t, "patient-chosen-hash", updated.PasswordHash)
	assert.Equal(t, "Jane Roe", updated.PatientName)
}

func TestUpsertSkipsMissingEmail(t *testing.T) {
	store := newFakeStore()
	pipeline := newTestPipeline(&fakeExtractor{}, &fakeDeleter{}, store, &mockLLMClient{})

	analysis, err := parseFixture(`{"summary": "ok", "entities": {"patient_email": "N/A"}}`)
	require.NoError(t, err)
	require.NoError(t, pipeline.upsertPatientAccount(context.Background(), analysis))

	assert.Empty(t, store.patients)
}

func TestHashDefaultPasswordFallsBackToPatient(t *testing.T) {
	hash, err := hashDefaultPassword("N/A")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("patient123!")))
}
