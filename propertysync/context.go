package propertysync

import (
	"context"
	"strings"

	"github.com/mmdatafocus/property_backend/utils"
)

// AddressPatch carries fields an address service filled in. Empty fields
// leave the request untouched.
type AddressPatch struct {
	City       string
	State      string
	PostalCode string
	Country    string
}

// AddressEnricher completes a partial address. It returns whatever it could
// resolve even when it also reports errors.
type AddressEnricher interface {
	Enrich(ctx context.Context, req *CreatePropertyRequest) (AddressPatch, []string)
}

// OrgResolver picks the org for a request: the org id the transport put in
// the context, then the body, then DEFAULT_ORG_ID.
func OrgResolver(req *CreatePropertyRequest) []utils.Resolver[string] {
	nonBlank := func(v string) (string, bool) {
		v = strings.TrimSpace(v)
		return v, v != ""
	}
	return []utils.Resolver[string]{
		func(ctx context.Context) (string, bool, error) {
			orgId, _ := utils.GetOrgIdFromContext(ctx)
			v, ok := nonBlank(orgId)
			return v, ok, nil
		},
		func(ctx context.Context) (string, bool, error) {
			v, ok := nonBlank(req.OrgId)
			return v, ok, nil
		},
		func(ctx context.Context) (string, bool, error) {
			v, ok := nonBlank(utils.EnvStringDefault("DEFAULT_ORG_ID", ""))
			return v, ok, nil
		},
	}
}

func applyAddressPatch(req *CreatePropertyRequest, patch AddressPatch) {
	req.City = utils.FirstNonEmpty(req.City, patch.City)
	req.State = utils.FirstNonEmpty(req.State, patch.State)
	req.PostalCode = utils.FirstNonEmpty(req.PostalCode, patch.PostalCode)
	req.Country = utils.FirstNonEmpty(req.Country, patch.Country)
}
