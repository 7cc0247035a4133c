package db

import (
	"context"

	"github.com/SaiNageswarS/go-api-boot/odm"
)

func InitConsentDB(ctx context.Context, mongo odm.MongoClient, tenant string) error {
	err := odm.EnsureIndexes[ConsentModel](ctx, mongo, tenant)
	if err != nil {
		return err
	}

	err = odm.EnsureIndexes[EntityIndexModel](ctx, mongo, tenant)
	if err != nil {
		return err
	}

	err = odm.EnsureIndexes[PatientModel](ctx, mongo, tenant)
	if err != nil {
		return err
	}

	return nil
}
