package propertysync

import (
	"context"
	"errors"
	"sync"

	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/remote"
)

type fakeRemote struct {
	mu sync.Mutex

	rentalId    int64
	createErr   error
	updateErr   error
	remoteUnits []remote.RentalUnit
	listErr     error
	nextOwnerId int64

	creates      []remote.RentalCreateRequest
	updates      []remote.RentalUpdateRequest
	unitLists    int
	ownerCreates []remote.RentalOwnerCreateRequest
}

func (f *fakeRemote) CreateRental(ctx context.Context, in remote.RentalCreateRequest) (*remote.Rental, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &remote.Rental{Id: remote.FlexInt64(f.rentalId), Name: in.Name}, nil
}

func (f *fakeRemote) UpdateRental(ctx context.Context, id int64, in remote.RentalUpdateRequest) (*remote.Rental, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, in)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &remote.Rental{Id: remote.FlexInt64(id), Name: in.Name, RentalOwnerIds: in.RentalOwnerIds}, nil
}

func (f *fakeRemote) ListRentalUnits(ctx context.Context, propertyId int64) ([]remote.RentalUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unitLists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.remoteUnits, nil
}

func (f *fakeRemote) CreateRentalOwner(ctx context.Context, in remote.RentalOwnerCreateRequest) (*remote.RentalOwner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ownerCreates = append(f.ownerCreates, in)
	if f.nextOwnerId == 0 {
		return nil, errors.New("owner create refused")
	}
	id := f.nextOwnerId
	f.nextOwnerId++
	return &remote.RentalOwner{Id: remote.FlexInt64(id)}, nil
}

func (f *fakeRemote) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.updates) + f.unitLists + len(f.ownerCreates)
}

// orderedStore records the table of every delete.
type orderedStore struct {
	*datastore.MemoryStore
	deletes []string
}

func (s *orderedStore) Delete(ctx context.Context, table string, id string) error {
	s.deletes = append(s.deletes, table)
	return s.MemoryStore.Delete(ctx, table, id)
}

type fakeLocker struct {
	err      error
	keys     []string
	released int
}

func (l *fakeLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, l.err
	}
	return func() { l.released++ }, nil
}
