package db

import "github.com/google/uuid"

// PatientModel holds one account per distinct patient email. Accounts are
// created by self-registration or implicitly by the ingestion worker when a
// consent form carries a new email.
type PatientModel struct {
	PatientID    string `json:"patientId" bson:"_id"`
	Email        string `json:"email" bson:"email"` // lowercased, unique
	PasswordHash string `json:"-" bson:"passwordHash"`
	PatientName  string `json:"patientName" bson:"patientName"`
	DateOfBirth  string `json:"dateOfBirth" bson:"dateOfBirth"`
	CreatedOn    int64  `json:"createdOn" bson:"createdOn"`
	UpdatedOn    int64  `json:"updatedOn" bson:"updatedOn"`
}

func NewPatientModel(email string) *PatientModel {
	return &PatientModel{
		PatientID: uuid.New().String(),
		Email:     email,
	}
}

func (m PatientModel) Id() string {
	if len(m.PatientID) == 0 {
		return uuid.New().String()
	}
	return m.PatientID
}

func (m PatientModel) CollectionName() string { return "patients" }
