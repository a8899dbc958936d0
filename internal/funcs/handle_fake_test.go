package funcs

import (
	"context"
	"fmt"
	"time"

	"github.com/Makisuo/confect-plus/internal/effect"
	"github.com/Makisuo/confect-plus/internal/platform"
	"github.com/Makisuo/confect-plus/internal/schema"
	"github.com/Makisuo/confect-plus/internal/wire"
)

// fakeHandle implements every raw handle kind in memory and counts each
// platform call, so tests can assert that bundle construction and effect
// description perform zero operations.
type fakeHandle struct {
	platform.HandleTag

	platformCalls int

	identity *platform.Identity
	docs     map[schema.DocID]wire.Object
	scan     platform.ScanResult
	inserts  []fakeInsert
	insertErr error
	nextID   int

	files map[platform.FileID][]byte
	jobs  []fakeJob

	runQuery    func(ref platform.FuncRef, args wire.Value) (wire.Value, error)
	runMutation func(ref platform.FuncRef, args wire.Value) (wire.Value, error)
	runAction   func(ref platform.FuncRef, args wire.Value) (wire.Value, error)

	vectorMatches []platform.VectorMatch
}

type fakeInsert struct {
	table string
	value wire.Object
}

type fakeJob struct {
	id       platform.JobID
	at       time.Time
	ref      platform.FuncRef
	args     wire.Value
	canceled bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		docs:  make(map[schema.DocID]wire.Object),
		files: make(map[platform.FileID][]byte),
	}
}

func (f *fakeHandle) UserIdentity(context.Context) (*platform.Identity, error) {
	f.platformCalls++
	return f.identity, nil
}

func (f *fakeHandle) Get(_ context.Context, _ string, id schema.DocID) (wire.Value, error) {
	f.platformCalls++
	doc, ok := f.docs[id]
	if !ok {
		return wire.Null{}, nil
	}
	return doc, nil
}

func (f *fakeHandle) Scan(context.Context, string, platform.ScanRequest) (platform.ScanResult, error) {
	f.platformCalls++
	return f.scan, nil
}

func (f *fakeHandle) Insert(_ context.Context, table string, value wire.Object) (schema.DocID, error) {
	f.platformCalls++
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.nextID++
	id := schema.DocID(fmt.Sprintf("doc-%d", f.nextID))
	f.inserts = append(f.inserts, fakeInsert{table: table, value: value})
	stored := value.Clone()
	stored["_id"] = wire.String(id)
	stored["_creationTime"] = wire.Int(time.Now().UnixMilli())
	f.docs[id] = stored
	return id, nil
}

func (f *fakeHandle) Patch(_ context.Context, id schema.DocID, patch wire.Object) error {
	f.platformCalls++
	doc, ok := f.docs[id]
	if !ok {
		return effect.Failf(effect.CodeNotFound, "no document %s", id)
	}
	for k, v := range patch {
		doc[k] = v
	}
	return nil
}

func (f *fakeHandle) Delete(_ context.Context, id schema.DocID) error {
	f.platformCalls++
	if _, ok := f.docs[id]; !ok {
		return effect.Failf(effect.CodeNotFound, "no document %s", id)
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeHandle) StorageExists(_ context.Context, id platform.FileID) (bool, error) {
	f.platformCalls++
	_, ok := f.files[id]
	return ok, nil
}

func (f *fakeHandle) StorageMetadata(_ context.Context, id platform.FileID) (*platform.FileMetadata, error) {
	f.platformCalls++
	data, ok := f.files[id]
	if !ok {
		return nil, nil
	}
	return &platform.FileMetadata{ID: id, Size: int64(len(data))}, nil
}

func (f *fakeHandle) StorageURL(_ context.Context, id platform.FileID) (string, error) {
	f.platformCalls++
	return "memory://" + string(id), nil
}

func (f *fakeHandle) StorageStore(_ context.Context, data []byte, _ string) (platform.FileID, error) {
	f.platformCalls++
	f.nextID++
	id := platform.FileID(fmt.Sprintf("file-%d", f.nextID))
	f.files[id] = data
	return id, nil
}

func (f *fakeHandle) StorageDelete(_ context.Context, id platform.FileID) error {
	f.platformCalls++
	delete(f.files, id)
	return nil
}

func (f *fakeHandle) ScheduleAt(_ context.Context, at time.Time, ref platform.FuncRef, args wire.Value) (platform.JobID, error) {
	f.platformCalls++
	f.nextID++
	id := platform.JobID(fmt.Sprintf("job-%d", f.nextID))
	f.jobs = append(f.jobs, fakeJob{id: id, at: at, ref: ref, args: args})
	return id, nil
}

func (f *fakeHandle) CancelJob(_ context.Context, id platform.JobID) error {
	f.platformCalls++
	for i := range f.jobs {
		if f.jobs[i].id == id {
			f.jobs[i].canceled = true
			return nil
		}
	}
	return effect.Failf(effect.CodeNotFound, "no job %s", id)
}

func (f *fakeHandle) RunQuery(_ context.Context, ref platform.FuncRef, args wire.Value) (wire.Value, error) {
	f.platformCalls++
	if f.runQuery != nil {
		return f.runQuery(ref, args)
	}
	return wire.Null{}, nil
}

func (f *fakeHandle) RunMutation(_ context.Context, ref platform.FuncRef, args wire.Value) (wire.Value, error) {
	f.platformCalls++
	if f.runMutation != nil {
		return f.runMutation(ref, args)
	}
	return wire.Null{}, nil
}

func (f *fakeHandle) RunAction(_ context.Context, ref platform.FuncRef, args wire.Value) (wire.Value, error) {
	f.platformCalls++
	if f.runAction != nil {
		return f.runAction(ref, args)
	}
	return wire.Null{}, nil
}

func (f *fakeHandle) VectorSearch(context.Context, string, []float32, int) ([]platform.VectorMatch, error) {
	f.platformCalls++
	return f.vectorMatches, nil
}

// bareHandle satisfies platform.Handle and nothing else, for asserting
// the kind check in compiled invoke closures.
type bareHandle struct {
	platform.HandleTag
}

var (
	_ platform.QueryHandle    = (*fakeHandle)(nil)
	_ platform.MutationHandle = (*fakeHandle)(nil)
	_ platform.ActionHandle   = (*fakeHandle)(nil)
)
