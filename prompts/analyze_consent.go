package prompts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/SaiNageswarS/consent-core/llm"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"go.uber.org/zap"
)

const notAvailable = "N/A"

type ConsentEntities struct {
	PatientName  string `json:"patient_name"`
	PatientEmail string `json:"patient_email"`
	DateOfBirth  string `json:"date_of_birth"`
	DoctorName   string `json:"doctor_name"`
	Procedure    string `json:"procedure"`
	Date         string `json:"date"`
}

// Pairs returns entity type/value pairs in schema order. Used to build the
// entity index deterministically.
func (e ConsentEntities) Pairs() [][2]string {
	return [][2]string{
		{"patient_name", e.PatientName},
		{"patient_email", e.PatientEmail},
		{"date_of_birth", e.DateOfBirth},
		{"doctor_name", e.DoctorName},
		{"procedure", e.Procedure},
		{"date", e.Date},
	}
}

// ConsentAnalysis is the five-key payload the model returns for a consent
// form. Raw carries the cleaned JSON text exactly as persisted alongside the
// parsed fields.
type ConsentAnalysis struct {
	Summary        string          `json:"summary"`
	Entities       ConsentEntities `json:"entities"`
	ConsentedItems []string        `json:"consented_items"`
	DeclinedItems  []string        `json:"declined_items"`
	PatientID      string          `json:"patient_id"`

	Raw string `json:"-"`
}

func AnalyzeConsentForm(ctx context.Context, client llm.LLMClient, fullText string) <-chan async.Result[*ConsentAnalysis] {
	return async.Go(func() (*ConsentAnalysis, error) {
		systemPrompt, err := loadPrompt("templates/analyze_consent_system.md", map[string]string{})
		if err != nil {
			logger.Error("Failed to load system prompt", zap.Error(err))
			return nil, err
		}

		userPrompt, err := loadPrompt("templates/analyze_consent_user.md", map[string]string{
			"FULL_TEXT": fullText,
		})
		if err != nil {
			return nil, err
		}

		messages := []llm.Message{
			{
				Role:    "user",
				Content: userPrompt,
			},
		}

		var response string
		err = client.GenerateInference(ctx, messages, func(chunk string) error {
			response += chunk
			return nil
		}, llm.WithSystemPrompt(systemPrompt),
			llm.WithMaxTokens(4096),
			llm.WithTemperature(0.2), // low temperature for exact extraction
		)

		if err != nil {
			return nil, err
		}

		return ParseAnalysis(response)
	})
}

// ParseAnalysis validates the model output against the five-key schema.
// The model may wrap the JSON in markdown code fences; those are stripped
// before parsing. Missing entity values default to "N/A", missing item lists
// to empty, a missing patient_id to "unknown".
func ParseAnalysis(response string) (*ConsentAnalysis, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	analysis := &ConsentAnalysis{}
	if err := json.Unmarshal([]byte(cleaned), analysis); err != nil {
		return nil, errors.New("model response is not valid analysis JSON: " + err.Error())
	}

	defaultEntity(&analysis.Entities.PatientName)
	defaultEntity(&analysis.Entities.PatientEmail)
	defaultEntity(&analysis.Entities.DateOfBirth)
	defaultEntity(&analysis.Entities.DoctorName)
	defaultEntity(&analysis.Entities.Procedure)
	defaultEntity(&analysis.Entities.Date)

	if analysis.ConsentedItems == nil {
		analysis.ConsentedItems = []string{}
	}
	if analysis.DeclinedItems == nil {
		analysis.DeclinedItems = []string{}
	}
	if analysis.PatientID == "" {
		analysis.PatientID = "unknown"
	}

	analysis.Raw = cleaned
	return analysis, nil
}

// FallbackAnalysis is the fixed payload used when the model call fails.
// The pipeline must continue on model failure rather than abort.
func FallbackAnalysis() *ConsentAnalysis {
	analysis := &ConsentAnalysis{
		Summary: "Consent form processed - AI analysis failed",
		Entities: ConsentEntities{
			PatientName:  notAvailable,
			PatientEmail: notAvailable,
			DateOfBirth:  notAvailable,
			DoctorName:   notAvailable,
			Procedure:    notAvailable,
			Date:         notAvailable,
		},
		ConsentedItems: []string{"Analysis pending"},
		DeclinedItems:  []string{},
		PatientID:      "unknown",
	}

	raw, _ := json.Marshal(analysis)
	analysis.Raw = string(raw)
	return analysis
}

func defaultEntity(value *string) {
	if strings.TrimSpace(*value) == "" {
		*value = notAvailable
	}
}
