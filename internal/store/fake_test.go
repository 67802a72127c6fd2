package store

import (
	"context"

	orm "github.com/medatechnology/tenantorm"
)

type insertCall struct {
	table string
	row   orm.Row
}

// fakeDB is an in-memory orm.Database. Statements are still run through the
// builder so malformed queries fail the same way they would against a server.
type fakeDB struct {
	tenant  int64
	prices  map[int64]string
	records map[string]orm.DBRecords
	counts  map[string]int64

	failInsert func(table string, n int) error
	nextID     int64

	inserts []insertCall
	selects []orm.SelectQuery
	updates []orm.UpdateQuery
	deletes []orm.DeleteQuery

	updateErr error
	deleteErr error

	begun, committed, rolledBack int
}

func newFakeDB(tenant int64) *fakeDB {
	return &fakeDB{
		tenant:  tenant,
		prices:  map[int64]string{},
		records: map[string]orm.DBRecords{},
		counts:  map[string]int64{},
	}
}

func (f *fakeDB) Insert(ctx context.Context, table string, data orm.Row) (int64, error) {
	if _, err := orm.BuildInsert(table, data); err != nil {
		return 0, err
	}
	if f.failInsert != nil {
		if err := f.failInsert(table, len(f.inserts)); err != nil {
			return 0, err
		}
	}
	f.inserts = append(f.inserts, insertCall{table: table, row: data})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeDB) Update(ctx context.Context, q orm.UpdateQuery) (int64, error) {
	if _, err := orm.BuildUpdate(q); err != nil {
		return 0, err
	}
	f.updates = append(f.updates, q)
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	id, _ := q.Filters.Find(orm.IDColumn)
	return id.Value.(int64), nil
}

func (f *fakeDB) Delete(ctx context.Context, q orm.DeleteQuery) (int64, error) {
	if _, err := orm.BuildDelete(q); err != nil {
		return 0, err
	}
	f.deletes = append(f.deletes, q)
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	id, _ := q.Filters.Find(orm.IDColumn)
	return id.Value.(int64), nil
}

func (f *fakeDB) SelectRows(ctx context.Context, q orm.SelectQuery) (orm.DBRecords, error) {
	if _, err := orm.BuildSelect(q); err != nil {
		return nil, err
	}
	f.selects = append(f.selects, q)

	if q.Table == TableProducts && len(q.Fields) == 2 {
		p, _ := q.Filters.Find(orm.IDColumn)
		price, ok := f.prices[p.Value.(int64)]
		if !ok || q.TenantID != f.tenant {
			return orm.DBRecords{}, nil
		}
		return orm.DBRecords{orm.NewDBRecord(q.Table, []string{"id", "price"}, []interface{}{p.Value, price})}, nil
	}

	if recs, ok := f.records[q.Table]; ok {
		return recs, nil
	}
	return orm.DBRecords{}, nil
}

func (f *fakeDB) Count(ctx context.Context, table string, tenantID int64) (int64, error) {
	if _, err := orm.BuildCount(table, tenantID); err != nil {
		return 0, err
	}
	return f.counts[table], nil
}

func (f *fakeDB) BeginTransaction(ctx context.Context) (orm.Transaction, error) {
	f.begun++
	return &fakeTx{fakeDB: f, mark: len(f.inserts)}, nil
}

func (f *fakeDB) Status(ctx context.Context) (orm.StatusStruct, error) {
	return orm.StatusStruct{DBMS: "fake", Connected: true}, nil
}

func (f *fakeDB) IsConnected() bool { return true }
func (f *fakeDB) Close() error      { return nil }

// fakeTx discards the inserts made through it on Rollback.
type fakeTx struct {
	*fakeDB
	mark int
	done bool
}

func (t *fakeTx) Commit() error {
	t.done = true
	t.committed++
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.rolledBack++
	t.inserts = t.inserts[:t.mark]
	return nil
}
