package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/property_backend/config"
	"github.com/mmdatafocus/property_backend/datastore"
	"github.com/mmdatafocus/property_backend/models"
	"github.com/mmdatafocus/property_backend/utils"
)

const lookupCacheTTL = 10 * time.Minute

// LookupRef is a resolved category or vendor reference. ExternalId is nil
// when only the raw name could be passed through.
type LookupRef struct {
	ExternalId *int64 `json:"external_id"`
	Name       string `json:"name"`
}

type lookupTable struct {
	table          string
	nameColumn     string
	externalColumn string
}

var (
	categoryLookup = lookupTable{table: models.TableFileCategories, nameColumn: "category_name", externalColumn: "external_category_id"}
	vendorLookup   = lookupTable{table: models.TableVendors, nameColumn: "name", externalColumn: "external_vendor_id"}
)

// ResolveCategory resolves a file category reference by numeric remote id,
// then by case-insensitive name, else passes the raw name through.
func (r *Resolver) ResolveCategory(ctx context.Context, orgId, ref string) (LookupRef, error) {
	return r.resolveLookup(ctx, categoryLookup, orgId, ref)
}

// ResolveVendor works like ResolveCategory over vendors.
func (r *Resolver) ResolveVendor(ctx context.Context, orgId, ref string) (LookupRef, error) {
	return r.resolveLookup(ctx, vendorLookup, orgId, ref)
}

func (r *Resolver) resolveLookup(ctx context.Context, lt lookupTable, orgId, ref string) (LookupRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return LookupRef{}, nil
	}
	cacheKey := fmt.Sprintf("propsync:lookup:%s:%s:%s", lt.table, orgId, strings.ToLower(ref))
	var cached LookupRef
	if ok, err := config.GetRedisObject(ctx, cacheKey, &cached); err == nil && ok {
		return cached, nil
	}

	store := r.writer.Store()
	scope := datastore.Row{}
	if orgId != "" {
		scope["org_id"] = orgId
	}
	var byExternalId utils.Resolver[LookupRef] = func(ctx context.Context) (LookupRef, bool, error) {
		n, ok := utils.ParseInt64(ref)
		if !ok || n <= 0 {
			return LookupRef{}, false, nil
		}
		where := scope.Clone()
		where[lt.externalColumn] = n
		rows, err := store.Find(ctx, lt.table, where)
		if err != nil || len(rows) == 0 {
			return LookupRef{}, false, err
		}
		return LookupRef{ExternalId: &n, Name: utils.AsString(rows[0][lt.nameColumn])}, true, nil
	}
	var byName utils.Resolver[LookupRef] = func(ctx context.Context) (LookupRef, bool, error) {
		rows, err := store.FindFold(ctx, lt.table, scope, lt.nameColumn, ref)
		if err != nil {
			return LookupRef{}, false, err
		}
		for _, row := range rows {
			if id, ok := utils.ParseInt64(row[lt.externalColumn]); ok && id > 0 {
				return LookupRef{ExternalId: &id, Name: utils.AsString(row[lt.nameColumn])}, true, nil
			}
		}
		return LookupRef{}, false, nil
	}

	found, ok, err := utils.FirstResolved(ctx, byExternalId, byName, utils.Static(LookupRef{Name: ref}, true))
	if err != nil {
		return LookupRef{}, fmt.Errorf("resolve %s %q: %w", lt.table, ref, err)
	}
	if ok && found.ExternalId != nil {
		if err := config.SetRedisObject(ctx, cacheKey, found, lookupCacheTTL); err != nil {
			r.logger.WithField("key", cacheKey).Warn("lookup cache write failed: " + err.Error())
		}
	}
	return found, nil
}
