package db

// EntityIndexModel is the denormalized, queryable projection of a
// ConsentModel. Keyed by the same document id, overwritten on re-processing.
type EntityIndexModel struct {
	DocumentID         string            `json:"document_id" bson:"_id"`
	Entities           map[string]string `json:"entities" bson:"entities"`
	SearchTerms        []string          `json:"search_terms" bson:"searchTerms"`
	PatientName        string            `json:"patient_name" bson:"patientName"`
	PatientID          string            `json:"patient_id" bson:"patientId"`
	PatientEmail       string            `json:"patient_email" bson:"patientEmail"` // lowercased, or "N/A"
	ConsentedItems     []string          `json:"consented_items" bson:"consentedItems"`
	DeclinedItems      []string          `json:"declined_items" bson:"declinedItems"`
	Summary            string            `json:"summary" bson:"summary"`
	ProcessedTimestamp int64             `json:"processed_timestamp" bson:"processedTimestamp"`
}

func (m EntityIndexModel) Id() string { return m.DocumentID }

func (m EntityIndexModel) CollectionName() string { return "entity_index" }
