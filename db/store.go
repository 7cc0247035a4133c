package db

import (
	"context"
	"regexp"

	"github.com/SaiNageswarS/go-api-boot/odm"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store wraps the odm collections both services read and write. Consumers
// depend on the narrow interfaces they declare; Store satisfies all of them.
type Store struct {
	mongo  odm.MongoClient
	tenant string
}

func NewStore(mongo odm.MongoClient, tenant string) *Store {
	return &Store{mongo: mongo, tenant: tenant}
}

func (s *Store) SaveConsent(ctx context.Context, m ConsentModel) error {
	_, err := async.Await(odm.CollectionOf[ConsentModel](s.mongo, s.tenant).Save(ctx, m))
	return err
}

func (s *Store) SaveEntityIndex(ctx context.Context, m EntityIndexModel) error {
	_, err := async.Await(odm.CollectionOf[EntityIndexModel](s.mongo, s.tenant).Save(ctx, m))
	return err
}

func (s *Store) SavePatient(ctx context.Context, m PatientModel) error {
	_, err := async.Await(odm.CollectionOf[PatientModel](s.mongo, s.tenant).Save(ctx, m))
	return err
}

// FindPatientByEmail returns nil without error when no account exists.
func (s *Store) FindPatientByEmail(ctx context.Context, email string) (*PatientModel, error) {
	patients, err := async.Await(odm.CollectionOf[PatientModel](s.mongo, s.tenant).
		Find(ctx, bson.M{"email": email}, nil, 1, 0))
	if err != nil {
		return nil, err
	}
	if len(patients) == 0 {
		return nil, nil
	}
	return &patients[0], nil
}

func (s *Store) EntityIndexByPatientEmail(ctx context.Context, email string) ([]EntityIndexModel, error) {
	return async.Await(odm.CollectionOf[EntityIndexModel](s.mongo, s.tenant).
		Find(ctx, bson.M{"patientEmail": email}, nil, 0, 0))
}

func (s *Store) EntityIndexByName(ctx context.Context, name string) ([]EntityIndexModel, error) {
	return async.Await(odm.CollectionOf[EntityIndexModel](s.mongo, s.tenant).
		Find(ctx, bson.M{"patientName": name}, nil, 1, 0))
}

// EntityIndexBySearchTerm matches entries whose search-term set contains the
// given term. Array membership in Mongo is plain equality on the field.
func (s *Store) EntityIndexBySearchTerm(ctx context.Context, term string) ([]EntityIndexModel, error) {
	return async.Await(odm.CollectionOf[EntityIndexModel](s.mongo, s.tenant).
		Find(ctx, bson.M{"searchTerms": term}, nil, 1, 0))
}

func (s *Store) EntityIndexByNamePrefix(ctx context.Context, prefix string) ([]EntityIndexModel, error) {
	return async.Await(odm.CollectionOf[EntityIndexModel](s.mongo, s.tenant).
		Find(ctx, bson.M{"patientName": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}, nil, 1, 0))
}

// AnyEntityIndex returns an arbitrary (first-listed) entry, or nil when the
// index is empty.
func (s *Store) AnyEntityIndex(ctx context.Context) (*EntityIndexModel, error) {
	entries, err := async.Await(odm.CollectionOf[EntityIndexModel](s.mongo, s.tenant).
		Find(ctx, bson.M{}, nil, 1, 0))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}
