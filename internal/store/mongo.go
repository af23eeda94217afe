package store

import (
	"context"
	"errors"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Mongo is the production Store, backed by MongoDB multi-document
// transactions (spec §2 item 1, §5). It mirrors orders/store.go's
// collection-per-entity shape, widened to the five collections spec §2
// names.
type Mongo struct {
	client          *mongo.Client
	businesses      *mongo.Collection
	services        *mongo.Collection
	manualCustomers *mongo.Collection
	entries         *mongo.Collection
}

// NewMongo wraps an already-connected client, opening the "queue"
// database's collections.
func NewMongo(client *mongo.Client) *Mongo {
	db := client.Database("queue")
	return &Mongo{
		client:          client,
		businesses:      db.Collection("businesses"),
		services:        db.Collection("services"),
		manualCustomers: db.Collection("manualCustomers"),
		entries:         db.Collection("queueEntries"),
	}
}

// EnsureIndexes creates the secondary indexes spec §2/§3 name:
// (businessId,status), (helperId,status), (helperId,position), and
// (joiningTime) on queue entries.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.entries.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "businessId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "helperId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "helperId", Value: 1}, {Key: "currentPosition", Value: 1}}},
		{Keys: bson.D{{Key: "joiningTime", Value: 1}}},
	})
	return err
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// WithTransaction runs fn inside a Mongo client session transaction. The
// driver retries TransientTransactionError/UnknownTransactionCommitResult
// itself; callers additionally bound their own retry budget on Conflict
// (spec §7) since WithTransaction surfaces those as model.Conflict errors
// the caller can choose to retry.
func (m *Mongo) WithTransaction(ctx context.Context, fn TxFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return model.Internal(err, "failed to start session")
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		tx := &mongoTx{sc: sc, store: m}
		return nil, fn(sc, tx)
	}, txnOpts)

	if err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError") {
			return model.Conflict("transaction aborted by a concurrent writer: %v", err)
		}
		return err
	}
	return nil
}

// Snapshot returns a Tx that reads outside of any transaction, with the
// driver's default (non-snapshot) read concern — acceptable per spec §5,
// which permits briefly-stale reads for projection consumers.
func (m *Mongo) Snapshot(ctx context.Context) Tx {
	return &mongoTx{sc: nil, store: m}
}

type mongoTx struct {
	sc    mongo.SessionContext
	store *Mongo
}

// ctx returns the session context if inside a transaction, else the
// caller-supplied context, so Tx methods work both inside and outside
// WithTransaction.
func (t *mongoTx) ctx(c context.Context) context.Context {
	if t.sc != nil {
		return t.sc
	}
	return c
}

func (t *mongoTx) GetBusiness(ctx context.Context, businessID string) (*model.Business, error) {
	var b model.Business
	err := t.store.businesses.FindOne(t.ctx(ctx), bson.M{"_id": businessID}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, model.Internal(err, "get business")
	}
	return &b, nil
}

func (t *mongoTx) SaveBusiness(ctx context.Context, b *model.Business) error {
	opts := options.Replace().SetUpsert(true)
	_, err := t.store.businesses.ReplaceOne(t.ctx(ctx), bson.M{"_id": b.ID}, b, opts)
	if err != nil {
		return model.Internal(err, "save business")
	}
	return nil
}

func (t *mongoTx) GetService(ctx context.Context, businessID, serviceID string) (*model.Service, error) {
	var s model.Service
	err := t.store.services.FindOne(t.ctx(ctx), bson.M{"_id": serviceID, "businessId": businessID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, model.Internal(err, "get service")
	}
	return &s, nil
}

func (t *mongoTx) ListServices(ctx context.Context, businessID string) ([]*model.Service, error) {
	cur, err := t.store.services.Find(t.ctx(ctx), bson.M{"businessId": businessID})
	if err != nil {
		return nil, model.Internal(err, "list services")
	}
	defer cur.Close(ctx)
	var out []*model.Service
	for cur.Next(ctx) {
		var s model.Service
		if err := cur.Decode(&s); err != nil {
			return nil, model.Internal(err, "decode service")
		}
		out = append(out, &s)
	}
	return out, cur.Err()
}

func (t *mongoTx) GetManualCustomer(ctx context.Context, businessID, manualID string) (*model.ManualCustomer, error) {
	var c model.ManualCustomer
	err := t.store.manualCustomers.FindOne(t.ctx(ctx), bson.M{"_id": manualID, "businessId": businessID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, model.Internal(err, "get manual customer")
	}
	return &c, nil
}

func (t *mongoTx) SaveManualCustomer(ctx context.Context, c *model.ManualCustomer) error {
	opts := options.Replace().SetUpsert(true)
	_, err := t.store.manualCustomers.ReplaceOne(t.ctx(ctx), bson.M{"_id": c.ManualID}, c, opts)
	if err != nil {
		return model.Internal(err, "save manual customer")
	}
	return nil
}

func (t *mongoTx) FindManualCustomers(ctx context.Context, businessID, name, phone string) ([]*model.ManualCustomer, error) {
	filter := bson.M{"businessId": businessID}
	if name != "" {
		filter["name"] = name
	}
	if phone != "" {
		filter["phone"] = phone
	}
	cur, err := t.store.manualCustomers.Find(t.ctx(ctx), filter)
	if err != nil {
		return nil, model.Internal(err, "find manual customers")
	}
	defer cur.Close(ctx)
	var out []*model.ManualCustomer
	for cur.Next(ctx) {
		var c model.ManualCustomer
		if err := cur.Decode(&c); err != nil {
			return nil, model.Internal(err, "decode manual customer")
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (t *mongoTx) GetQueueEntry(ctx context.Context, entryID string) (*model.QueueEntry, error) {
	var e model.QueueEntry
	err := t.store.entries.FindOne(t.ctx(ctx), bson.M{"_id": entryID}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, model.Internal(err, "get queue entry")
	}
	return &e, nil
}

func (t *mongoTx) InsertQueueEntries(ctx context.Context, entries []*model.QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = e
	}
	_, err := t.store.entries.InsertMany(t.ctx(ctx), docs)
	if err != nil {
		return model.Internal(err, "insert queue entries")
	}
	return nil
}

func (t *mongoTx) SaveQueueEntry(ctx context.Context, e *model.QueueEntry) error {
	opts := options.Replace().SetUpsert(true)
	_, err := t.store.entries.ReplaceOne(t.ctx(ctx), bson.M{"_id": e.ID}, e, opts)
	if err != nil {
		return model.Internal(err, "save queue entry")
	}
	return nil
}

// statusFilter builds a $in clause, or an always-true filter when
// statuses is empty ("any status", used by the history projections).
func statusFilter(statuses []model.EntryStatus) bson.M {
	if len(statuses) == 0 {
		return bson.M{"$exists": true}
	}
	vals := make([]model.EntryStatus, len(statuses))
	copy(vals, statuses)
	return bson.M{"$in": vals}
}

func (t *mongoTx) ListLane(ctx context.Context, businessID, helperID string, statuses []model.EntryStatus) ([]*model.QueueEntry, error) {
	filter := bson.M{"businessId": businessID, "helperId": helperID, "status": statusFilter(statuses)}
	return t.find(ctx, filter, false)
}

func (t *mongoTx) ListBusinessWindow(ctx context.Context, businessID string, statuses []model.EntryStatus, from, to time.Time) ([]*model.QueueEntry, error) {
	filter := bson.M{
		"businessId":  businessID,
		"status":      statusFilter(statuses),
		"joiningTime": bson.M{"$gte": from, "$lte": to},
	}
	return t.find(ctx, filter, true)
}

func (t *mongoTx) ListHelperWindow(ctx context.Context, helperID string, statuses []model.EntryStatus, from, to time.Time) ([]*model.QueueEntry, error) {
	filter := bson.M{
		"helperId":    helperID,
		"status":      statusFilter(statuses),
		"joiningTime": bson.M{"$gte": from, "$lte": to},
	}
	return t.find(ctx, filter, true)
}

func (t *mongoTx) ListUserWindow(ctx context.Context, userID string, from, to time.Time) ([]*model.QueueEntry, error) {
	filter := bson.M{
		"userRef.kind":   model.UserRefRegistered,
		"userRef.userId": userID,
		"joiningTime":    bson.M{"$gte": from, "$lte": to},
	}
	return t.find(ctx, filter, true)
}

func (t *mongoTx) ListBusinessAllWindow(ctx context.Context, businessID string, from, to time.Time) ([]*model.QueueEntry, error) {
	filter := bson.M{
		"businessId":  businessID,
		"joiningTime": bson.M{"$gte": from, "$lte": to},
	}
	return t.find(ctx, filter, true)
}

func (t *mongoTx) find(ctx context.Context, filter bson.M, sortByJoining bool) ([]*model.QueueEntry, error) {
	opts := options.Find()
	if sortByJoining {
		opts.SetSort(bson.D{{Key: "joiningTime", Value: 1}})
	}
	cur, err := t.store.entries.Find(t.ctx(ctx), filter, opts)
	if err != nil {
		return nil, model.Internal(err, "list queue entries")
	}
	defer cur.Close(ctx)
	var out []*model.QueueEntry
	for cur.Next(ctx) {
		var e model.QueueEntry
		if err := cur.Decode(&e); err != nil {
			return nil, model.Internal(err, "decode queue entry")
		}
		out = append(out, &e)
	}
	return out, cur.Err()
}
