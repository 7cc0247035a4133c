package ingestor

import (
	"context"
	"strings"
	"time"

	"github.com/SaiNageswarS/consent-core/db"
	"github.com/SaiNageswarS/consent-core/llm"
	"github.com/SaiNageswarS/consent-core/prompts"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/SaiNageswarS/go-collection-boot/linq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const defaultPasswordSuffix = "123!"

// StorageEvent is the object-creation notification from the blob store.
type StorageEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

type textExtractor interface {
	ExtractText(ctx context.Context, bucket, name string) (string, []string, error)
}

type blobDeleter interface {
	Delete(ctx context.Context, bucket, name string) error
}

type consentStore interface {
	SaveConsent(ctx context.Context, m db.ConsentModel) error
	SaveEntityIndex(ctx context.Context, m db.EntityIndexModel) error
	FindPatientByEmail(ctx context.Context, email string) (*db.PatientModel, error)
	SavePatient(ctx context.Context, m db.PatientModel) error
}

// Pipeline processes one storage event to completion: OCR, model analysis,
// consent record, entity index, implicit patient account, OCR cleanup. No
// internal parallelism; each invocation is independent and unsynchronized
// with concurrent invocations (last write wins on a shared document id).
type Pipeline struct {
	ocr       textExtractor
	blobs     blobDeleter
	store     consentStore
	llmClient llm.LLMClient
}

func NewPipeline(ocr textExtractor, blobs blobDeleter, store consentStore, llmClient llm.LLMClient) *Pipeline {
	return &Pipeline{
		ocr:       ocr,
		blobs:     blobs,
		store:     store,
		llmClient: llmClient,
	}
}

// ProcessEvent runs the ingestion steps in order. A returned error means the
// invocation failed before the consent record was persisted and the event
// should be redelivered by the event source.
func (p *Pipeline) ProcessEvent(ctx context.Context, event StorageEvent) error {
	if !strings.HasSuffix(strings.ToLower(event.Name), ".pdf") {
		logger.Info("Ignoring non-PDF object", zap.String("name", event.Name))
		return nil
	}

	logger.Info("Processing consent form",
		zap.String("bucket", event.Bucket), zap.String("name", event.Name))

	fullText, resultBlobs, err := p.ocr.ExtractText(ctx, event.Bucket, event.Name)
	if err != nil {
		return err
	}

	analysis, err := async.Await(prompts.AnalyzeConsentForm(ctx, p.llmClient, fullText))
	if err != nil {
		logger.Error("Model analysis failed, using fallback", zap.Error(err))
		analysis = prompts.FallbackAnalysis()
	}

	documentID := db.DocumentID(event.Name)
	now := time.Now().UnixMilli()

	// The consent record is the primary write; failure here aborts the
	// invocation without cleaning up the OCR output.
	err = p.store.SaveConsent(ctx, db.ConsentModel{
		DocumentID:         documentID,
		Filename:           event.Name,
		AiAnalysisJson:     analysis.Raw,
		FullText:           fullText,
		ProcessedTimestamp: now,
	})
	if err != nil {
		return err
	}

	// Entity index and account upsert are best-effort side effects; their
	// failures are logged without aborting the remaining steps.
	if err := p.store.SaveEntityIndex(ctx, buildEntityIndex(documentID, analysis, now)); err != nil {
		logger.Error("Failed to store entity index", zap.String("documentId", documentID), zap.Error(err))
	}

	if err := p.upsertPatientAccount(ctx, analysis); err != nil {
		logger.Error("Failed to create patient account", zap.String("documentId", documentID), zap.Error(err))
	}

	for _, blobName := range resultBlobs {
		if err := p.blobs.Delete(ctx, event.Bucket, blobName); err != nil {
			logger.Error("Failed to delete OCR output blob", zap.String("blob", blobName), zap.Error(err))
		}
	}

	logger.Info("Consent form processed", zap.String("documentId", documentID))
	return nil
}

// buildEntityIndex projects the analysis into the searchable entity index.
// Every non-"N/A" entity contributes a "type:value" term plus the lowercased
// value alone. The patient email is stored lowercased.
func buildEntityIndex(documentID string, analysis *prompts.ConsentAnalysis, timestamp int64) db.EntityIndexModel {
	entities := map[string]string{}
	var searchTerms []string

	for _, pair := range analysis.Entities.Pairs() {
		entityType, entityValue := pair[0], pair[1]
		if entityValue == "" || entityValue == "N/A" {
			continue
		}
		entities[entityType] = entityValue
		searchTerms = append(searchTerms, entityType+":"+entityValue)
		searchTerms = append(searchTerms, strings.ToLower(entityValue))
	}

	patientEmail := analysis.Entities.PatientEmail
	if patientEmail != "N/A" {
		patientEmail = strings.ToLower(patientEmail)
	}

	return db.EntityIndexModel{
		DocumentID:         documentID,
		Entities:           entities,
		SearchTerms:        linq.Distinct(searchTerms, func(t string) string { return t }),
		PatientName:        analysis.Entities.PatientName,
		PatientID:          analysis.PatientID,
		PatientEmail:       patientEmail,
		ConsentedItems:     analysis.ConsentedItems,
		DeclinedItems:      analysis.DeclinedItems,
		Summary:            analysis.Summary,
		ProcessedTimestamp: timestamp,
	}
}

// upsertPatientAccount provisions an account for the email extracted from the
// consent form. An existing account's name and email are refreshed, but a
// credential the patient set themselves is never overwritten.
func (p *Pipeline) upsertPatientAccount(ctx context.Context, analysis *prompts.ConsentAnalysis) error {
	patientEmail := strings.ToLower(strings.TrimSpace(analysis.Entities.PatientEmail))
	if patientEmail == "" || patientEmail == "n/a" {
		logger.Info("No patient email found in consent form - skipping account creation")
		return nil
	}

	patientName := analysis.Entities.PatientName
	now := time.Now().UnixMilli()

	existing, err := p.store.FindPatientByEmail(ctx, patientEmail)
	if err != nil {
		return err
	}

	if existing != nil {
		existing.PatientName = patientName
		existing.Email = patientEmail
		existing.UpdatedOn = now
		if existing.PasswordHash == "" {
			hash, err := hashDefaultPassword(patientName)
			if err != nil {
				return err
			}
			existing.PasswordHash = hash
		}
		return p.store.SavePatient(ctx, *existing)
	}

	hash, err := hashDefaultPassword(patientName)
	if err != nil {
		return err
	}

	account := db.NewPatientModel(patientEmail)
	account.PasswordHash = hash
	account.PatientName = patientName
	account.CreatedOn = now
	account.UpdatedOn = now
	return p.store.SavePatient(ctx, *account)
}

// hashDefaultPassword derives the initial credential from the patient's first
// name. The plaintext default is never persisted; patients are expected to
// change it on first login.
func hashDefaultPassword(patientName string) (string, error) {
	first := "patient"
	if patientName != "" && patientName != "N/A" {
		if parts := strings.Fields(patientName); len(parts) > 0 {
			first = strings.ToLower(parts[0])
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(first+defaultPasswordSuffix), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
