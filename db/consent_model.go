package db

import (
	"path/filepath"
	"strings"
)

// ConsentModel is the canonical record of one processed consent form.
// Written once per document by the ingestion worker; re-processing the
// same filename overwrites it (last write wins).
type ConsentModel struct {
	DocumentID         string `json:"documentId" bson:"_id"` // filename with extension stripped
	Filename           string `json:"filename" bson:"filename"`
	AiAnalysisJson     string `json:"aiAnalysisJson" bson:"aiAnalysisJson"` // raw model JSON, code fences stripped
	FullText           string `json:"fullText" bson:"fullText"`
	ProcessedTimestamp int64  `json:"processedTimestamp" bson:"processedTimestamp"`
}

func (m ConsentModel) Id() string {
	if len(m.DocumentID) == 0 {
		return DocumentID(m.Filename)
	}
	return m.DocumentID
}

func (m ConsentModel) CollectionName() string { return "consents" }

// DocumentID derives the database key from an uploaded object name.
func DocumentID(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
