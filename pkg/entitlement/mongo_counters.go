package entitlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Collections holding the gated tenant resources.
const (
	employeesCollection    = "employees"
	visitorsCollection     = "visitors"
	appointmentsCollection = "appointments"
)

// MongoCounter builds a CounterFunc counting non-deleted documents scoped
// to a tenant. Soft-deleted records carry a deleted_at timestamp and must
// never count toward trial ceilings, including records that are later
// restored.
func MongoCounter(db *mongo.Database, collection string) CounterFunc {
	if db == nil {
		panic("entitlement: mongo database is required")
	}
	coll := db.Collection(collection)

	return func(ctx context.Context, tenantID uuid.UUID) (int64, error) {
		n, err := coll.CountDocuments(ctx, bson.D{
			{Key: "tenant_id", Value: tenantID.String()},
			{Key: "deleted_at", Value: nil},
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count %s: %w", collection, err)
		}
		return n, nil
	}
}

// MongoCounters registers counters for every trial-gated resource.
func MongoCounters(db *mongo.Database) CounterRegistry {
	reg := NewRegistry()
	reg.Register(ResourceEmployees, MongoCounter(db, employeesCollection))
	reg.Register(ResourceVisitors, MongoCounter(db, visitorsCollection))
	reg.Register(ResourceAppointments, MongoCounter(db, appointmentsCollection))
	return reg
}
