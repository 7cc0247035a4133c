package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/SaiNageswarS/consent-core/db"
	"github.com/SaiNageswarS/consent-core/llm"
	"github.com/SaiNageswarS/consent-core/prompts"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	noFormsMessage = "I don't have any consent forms on file for you. Please contact your healthcare provider."
	maxContextDocs = 3
)

// Ordered entity patterns for /ask; first match wins.
var entityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`patient\s+(\w+)`),
	regexp.MustCompile(`(\w+)\s+declined`),
	regexp.MustCompile(`(\w+)\s+consented`),
	regexp.MustCompile(`what\s+did\s+(\w+)`),
	regexp.MustCompile(`(\w+)\s+patient`),
}

type EntityIndexStore interface {
	EntityIndexByPatientEmail(ctx context.Context, email string) ([]db.EntityIndexModel, error)
	EntityIndexByName(ctx context.Context, name string) ([]db.EntityIndexModel, error)
	EntityIndexBySearchTerm(ctx context.Context, term string) ([]db.EntityIndexModel, error)
	EntityIndexByNamePrefix(ctx context.Context, prefix string) ([]db.EntityIndexModel, error)
	AnyEntityIndex(ctx context.Context) (*db.EntityIndexModel, error)
}

type FileUploader interface {
	Upload(ctx context.Context, bucket, name string, data io.Reader) error
}

type QueryService struct {
	index     EntityIndexStore
	uploads   FileUploader
	bucket    string
	llmClient llm.LLMClient
}

func ProvideQueryService(index EntityIndexStore, uploads FileUploader, bucket string, llmClient llm.LLMClient) *QueryService {
	return &QueryService{
		index:     index,
		uploads:   uploads,
		bucket:    bucket,
		llmClient: llmClient,
	}
}

type QueryRequest struct {
	Query string `json:"query"`
}

// HandleQuery answers a question against the authenticated patient's own
// consent forms only. Exact match on the session email enforces patient data
// isolation.
func (s *QueryService) HandleQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No query provided"})
		return
	}

	patientEmail := c.GetString(patientEmailKey)
	logger.Info("Processing patient query", zap.String("email", patientEmail))

	docs, err := s.index.EntityIndexByPatientEmail(c.Request.Context(), patientEmail)
	if err != nil {
		logger.Error("Failed to search patient documents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if len(docs) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"query":   query,
			"answer":  noFormsMessage,
			"sources": []string{},
		})
		return
	}

	answer, err := async.Await(prompts.AnswerConsentQuery(
		c.Request.Context(), s.llmClient, query, buildConsentContext(docs)))
	if err != nil {
		logger.Error("Model answer failed, using keyword fallback", zap.Error(err))
		answer = keywordFallbackAnswer(query, docs)
	}

	sources := make([]string, 0, len(docs))
	for _, doc := range docs {
		sources = append(sources, doc.DocumentID)
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"answer":  answer,
		"sources": sources,
	})
}

// buildConsentContext assembles the prompt context block from up to the first
// three matching documents.
func buildConsentContext(docs []db.EntityIndexModel) string {
	if len(docs) > maxContextDocs {
		docs = docs[:maxContextDocs]
	}

	var out strings.Builder
	for _, doc := range docs {
		patientName := doc.PatientName
		if patientName == "" {
			patientName = "N/A"
		}
		fmt.Fprintf(&out, "\nConsent Form: %s\n", doc.DocumentID)
		fmt.Fprintf(&out, "Patient: %s\n", patientName)
		fmt.Fprintf(&out, "Summary: %s\n", doc.Summary)
		fmt.Fprintf(&out, "Items Consented To: %s\n", joinOrNone(doc.ConsentedItems))
		fmt.Fprintf(&out, "Items Declined: %s\n", joinOrNone(doc.DeclinedItems))
	}
	return out.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None listed"
	}
	return strings.Join(items, ", ")
}

// keywordFallbackAnswer is the deterministic answer used when the model is
// unavailable.
func keywordFallbackAnswer(query string, docs []db.EntityIndexModel) string {
	queryLower := strings.ToLower(query)

	for _, doc := range docs {
		if strings.Contains(queryLower, "decline") {
			if len(doc.DeclinedItems) > 0 {
				return "Based on your consent form, you declined: " + strings.Join(doc.DeclinedItems, ", ")
			}
			return "Based on your consent form, you didn't decline any items."
		}

		if strings.Contains(queryLower, "consent") || strings.Contains(queryLower, "agree") {
			if len(doc.ConsentedItems) > 0 {
				return "Based on your consent form, you consented to: " + strings.Join(doc.ConsentedItems, ", ")
			}
			return "Based on your consent form, no specific consent items were listed."
		}
	}

	return "I found your consent form but couldn't extract specific information. Please contact your healthcare provider for details."
}

type AskRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

// HandleAsk resolves a free-text question to a document via regex entity
// extraction and answers by keyword only, without a model call. It performs
// no patient-identity check; any caller can surface any record.
func (s *QueryService) HandleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No question provided"})
		return
	}

	entity := extractKeyEntity(question)

	var doc *db.EntityIndexModel
	if entity != "" {
		doc = s.resolveEntity(c.Request.Context(), entity)
	} else {
		// No entity in the question: fall back to any document on file.
		var err error
		doc, err = s.index.AnyEntityIndex(c.Request.Context())
		if err != nil {
			logger.Error("Failed to fetch most recent document", zap.Error(err))
		}
	}

	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No consent form found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":      contextualAnswer(question, doc),
		"document_id": doc.DocumentID,
		"entity":      entity,
	})
}

// extractKeyEntity pulls a candidate entity token from the question, matching
// the ordered patterns against the lowercased text.
func extractKeyEntity(question string) string {
	questionLower := strings.ToLower(question)
	for _, pattern := range entityPatterns {
		if match := pattern.FindStringSubmatch(questionLower); match != nil {
			return match[1]
		}
	}
	return ""
}

// resolveEntity tries exact name match, then search-term membership, then
// name prefix; the first strategy with a hit wins. Lookup errors are logged
// and treated as misses.
func (s *QueryService) resolveEntity(ctx context.Context, entity string) *db.EntityIndexModel {
	if docs, err := s.index.EntityIndexByName(ctx, entity); err != nil {
		logger.Error("Entity name lookup failed", zap.Error(err))
	} else if len(docs) > 0 {
		return &docs[0]
	}

	if docs, err := s.index.EntityIndexBySearchTerm(ctx, strings.ToLower(entity)); err != nil {
		logger.Error("Search term lookup failed", zap.Error(err))
	} else if len(docs) > 0 {
		return &docs[0]
	}

	if docs, err := s.index.EntityIndexByNamePrefix(ctx, entity); err != nil {
		logger.Error("Name prefix lookup failed", zap.Error(err))
	} else if len(docs) > 0 {
		return &docs[0]
	}

	return nil
}

func contextualAnswer(question string, doc *db.EntityIndexModel) string {
	questionLower := strings.ToLower(question)

	if strings.Contains(questionLower, "decline") {
		if len(doc.DeclinedItems) > 0 {
			return fmt.Sprintf("Based on %s, the following items were declined: %s",
				doc.DocumentID, strings.Join(doc.DeclinedItems, ", "))
		}
		return fmt.Sprintf("Based on %s, no items were declined.", doc.DocumentID)
	}

	if strings.Contains(questionLower, "consent") || strings.Contains(questionLower, "agree") {
		if len(doc.ConsentedItems) > 0 {
			return fmt.Sprintf("Based on %s, the following items were consented to: %s",
				doc.DocumentID, strings.Join(doc.ConsentedItems, ", "))
		}
		return fmt.Sprintf("Based on %s, no specific consent items were found.", doc.DocumentID)
	}

	summary := doc.Summary
	if summary == "" {
		summary = "No summary available."
	}
	return fmt.Sprintf("Based on %s: %s", doc.DocumentID, summary)
}

// HandleUpload streams a consent PDF to the bucket under an opaque unique
// name. The resulting object-created event is what triggers the ingestion
// worker; the two processes never call each other directly.
func (s *QueryService) HandleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	if file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}

	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed: " + err.Error()})
		return
	}
	defer src.Close()

	uniqueName := uuid.New().String() + filepath.Ext(file.Filename)
	if err := s.uploads.Upload(c.Request.Context(), s.bucket, uniqueName, src); err != nil {
		logger.Error("Upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed: " + err.Error()})
		return
	}

	logger.Info("File uploaded", zap.String("filename", uniqueName))
	c.JSON(http.StatusOK, gin.H{
		"message":       "File uploaded successfully",
		"filename":      uniqueName,
		"original_name": file.Filename,
	})
}
