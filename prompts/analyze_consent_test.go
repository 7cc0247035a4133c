package prompts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/SaiNageswarS/consent-core/llm"
	"github.com/SaiNageswarS/go-collection-boot/async"
)

type mockLLMClient struct {
	response string
	err      error
	model    string

	lastUser string
}

func (m *mockLLMClient) GetModel() string { return m.model }

func (m *mockLLMClient) GenerateInference(
	ctx context.Context,
	messages []llm.Message,
	callback func(string) error,
	options ...llm.LLMOption,
) error {
	if m.err != nil {
		return m.err
	}
	if len(messages) > 0 {
		m.lastUser = messages[len(messages)-1].Content
	}
	return callback(m.response)
}

func TestParseAnalysisStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"summary\": \"Surgical consent.\", \"entities\": {\"patient_name\": \"Jane Roe\", \"patient_email\": \"jane@example.com\", \"date_of_birth\": \"N/A\", \"doctor_name\": \"Dr. Kim\", \"procedure\": \"Appendectomy\", \"date\": \"2024-01-09\"}, \"consented_items\": [\"anesthesia\"], \"declined_items\": [\"blood transfusion\"], \"patient_id\": \"jane@example.com\"}\n```"

	analysis, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("Failed to parse analysis: %v", err)
	}

	if analysis.Summary != "Surgical consent." {
		t.Errorf("Unexpected summary: %s", analysis.Summary)
	}
	if analysis.Entities.PatientName != "Jane Roe" {
		t.Errorf("Unexpected patient name: %s", analysis.Entities.PatientName)
	}
	if strings.Contains(analysis.Raw, "```") {
		t.Error("Raw analysis should not contain code fences")
	}
	if len(analysis.DeclinedItems) != 1 || analysis.DeclinedItems[0] != "blood transfusion" {
		t.Errorf("Unexpected declined items: %v", analysis.DeclinedItems)
	}
}

func TestParseAnalysisDefaultsMissingFields(t *testing.T) {
	analysis, err := ParseAnalysis(`{"summary": "A consent form.", "entities": {}}`)
	if err != nil {
		t.Fatalf("Failed to parse analysis: %v", err)
	}

	if analysis.Entities.PatientEmail != "N/A" {
		t.Errorf("Missing entity should default to N/A, got %s", analysis.Entities.PatientEmail)
	}
	if analysis.ConsentedItems == nil || analysis.DeclinedItems == nil {
		t.Error("Item lists should default to empty, not nil")
	}
	if analysis.PatientID != "unknown" {
		t.Errorf("Missing patient_id should default to unknown, got %s", analysis.PatientID)
	}
}

func TestParseAnalysisRejectsNonJSON(t *testing.T) {
	if _, err := ParseAnalysis("Sorry, I cannot analyze this document."); err == nil {
		t.Error("Expected error for non-JSON model output")
	}
}

func TestFallbackAnalysisShape(t *testing.T) {
	analysis := FallbackAnalysis()

	for _, pair := range analysis.Entities.Pairs() {
		if pair[1] != "N/A" {
			t.Errorf("Fallback entity %s should be N/A, got %s", pair[0], pair[1])
		}
	}
	if len(analysis.ConsentedItems) != 1 || analysis.ConsentedItems[0] != "Analysis pending" {
		t.Errorf("Unexpected fallback consented items: %v", analysis.ConsentedItems)
	}
	if len(analysis.DeclinedItems) != 0 {
		t.Errorf("Fallback declined items should be empty: %v", analysis.DeclinedItems)
	}
	if analysis.PatientID != "unknown" {
		t.Errorf("Fallback patient_id should be unknown, got %s", analysis.PatientID)
	}

	// The fallback raw payload must itself satisfy the schema.
	reparsed, err := ParseAnalysis(analysis.Raw)
	if err != nil {
		t.Fatalf("Fallback raw payload should parse: %v", err)
	}
	if reparsed.Summary != "Consent form processed - AI analysis failed" {
		t.Errorf("Unexpected fallback summary: %s", reparsed.Summary)
	}
}

func TestAnalyzeConsentFormEmbedsFullText(t *testing.T) {
	client := &mockLLMClient{
		response: `{"summary": "ok", "entities": {}, "consented_items": [], "declined_items": [], "patient_id": "p1"}`,
	}

	analysis, err := async.Await(AnalyzeConsentForm(context.Background(), client, "CONSENT FORM FULL TEXT"))
	if err != nil {
		t.Fatalf("AnalyzeConsentForm failed: %v", err)
	}

	if !strings.Contains(client.lastUser, "CONSENT FORM FULL TEXT") {
		t.Error("User prompt should embed the OCR full text")
	}
	if analysis.PatientID != "p1" {
		t.Errorf("Unexpected patient id: %s", analysis.PatientID)
	}
}

func TestAnalyzeConsentFormPropagatesModelError(t *testing.T) {
	client := &mockLLMClient{err: errors.New("model unavailable")}

	if _, err := async.Await(AnalyzeConsentForm(context.Background(), client, "text")); err == nil {
		t.Error("Expected model error to propagate")
	}
}
