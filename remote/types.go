package remote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt64 accepts ids sent either as JSON numbers or numeric strings.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = FlexInt64(n)
	return nil
}

type Address struct {
	AddressLine1 string `json:"AddressLine1" validate:"required"`
	AddressLine2 string `json:"AddressLine2,omitempty"`
	City         string `json:"City" validate:"required"`
	State        string `json:"State" validate:"required"`
	PostalCode   string `json:"PostalCode" validate:"required"`
	Country      string `json:"Country" validate:"required"`
}

// OwnerAddress is looser than Address; the remote side fills gaps itself.
type OwnerAddress struct {
	AddressLine1 string `json:"AddressLine1,omitempty"`
	AddressLine2 string `json:"AddressLine2,omitempty"`
	City         string `json:"City,omitempty"`
	State        string `json:"State,omitempty"`
	PostalCode   string `json:"PostalCode,omitempty"`
	Country      string `json:"Country,omitempty"`
}

type RentalUnitCreate struct {
	UnitNumber    string   `json:"UnitNumber" validate:"required"`
	UnitSize      *int     `json:"UnitSize,omitempty"`
	UnitBedrooms  string   `json:"UnitBedrooms,omitempty"`
	UnitBathrooms string   `json:"UnitBathrooms,omitempty"`
	MarketRent    *float64 `json:"MarketRent,omitempty"`
	Description   string   `json:"Description,omitempty"`
}

// RentalCreateRequest is the remote property create payload. Fields tagged
// required must be present before the call is attempted.
type RentalCreateRequest struct {
	Name                   string             `json:"Name" validate:"required"`
	StructureDescription   string             `json:"StructureDescription,omitempty"`
	RentalType             string             `json:"RentalType" validate:"required"`
	RentalSubType          string             `json:"RentalSubType" validate:"required"`
	Address                Address            `json:"Address"`
	YearBuilt              *int               `json:"YearBuilt,omitempty"`
	IsActive               bool               `json:"IsActive"`
	OperatingBankAccountId *int64             `json:"OperatingBankAccountId,omitempty"`
	Reserve                *float64           `json:"Reserve,omitempty"`
	RentalOwnerIds         []int64            `json:"RentalOwnerIds,omitempty"`
	Units                  []RentalUnitCreate `json:"Units,omitempty" validate:"dive"`
}

// RentalUpdateRequest is a full replacement of the remote property.
type RentalUpdateRequest struct {
	Name                   string   `json:"Name" validate:"required"`
	StructureDescription   string   `json:"StructureDescription,omitempty"`
	RentalType             string   `json:"RentalType" validate:"required"`
	RentalSubType          string   `json:"RentalSubType" validate:"required"`
	Address                Address  `json:"Address"`
	YearBuilt              *int     `json:"YearBuilt,omitempty"`
	IsActive               bool     `json:"IsActive"`
	OperatingBankAccountId *int64   `json:"OperatingBankAccountId,omitempty"`
	Reserve                *float64 `json:"Reserve,omitempty"`
	RentalOwnerIds         []int64  `json:"RentalOwnerIds,omitempty"`
}

type Rental struct {
	Id             FlexInt64 `json:"Id"`
	Name           string    `json:"Name"`
	RentalOwnerIds []int64   `json:"RentalOwnerIds"`
}

type RentalUnit struct {
	Id         FlexInt64 `json:"Id"`
	PropertyId FlexInt64 `json:"PropertyId"`
	UnitNumber string    `json:"UnitNumber"`
}

type RentalOwnerCreateRequest struct {
	IsCompany    bool         `json:"IsCompany"`
	FirstName    string       `json:"FirstName,omitempty"`
	LastName     string       `json:"LastName,omitempty"`
	CompanyName  string       `json:"CompanyName,omitempty"`
	Email        string       `json:"Email,omitempty"`
	PhoneNumbers []Phone      `json:"PhoneNumbers,omitempty"`
	Address      OwnerAddress `json:"Address"`
	IsActive     bool         `json:"IsActive"`
	TaxId        string       `json:"TaxId,omitempty"`
	PropertyIds  []int64      `json:"PropertyIds,omitempty"`
}

type Phone struct {
	Number string `json:"Number"`
	Type   string `json:"Type"`
}

type RentalOwner struct {
	Id FlexInt64 `json:"Id"`
}

// FileUploadRequest asks the remote side for an upload ticket.
type FileUploadRequest struct {
	EntityType  string `json:"EntityType"`
	EntityId    int64  `json:"EntityId"`
	FileName    string `json:"FileName"`
	Title       string `json:"Title,omitempty"`
	Description string `json:"Description,omitempty"`
	CategoryId  *int64 `json:"CategoryId,omitempty"`
	IsPrivate   bool   `json:"IsPrivate"`
}

// UploadTicket authorises one direct multipart POST to BucketUrl. It is
// consumed by a single upload and never stored.
type UploadTicket struct {
	BucketUrl        string            `json:"BucketUrl"`
	FormData         map[string]string `json:"FormData"`
	PhysicalFileName string            `json:"PhysicalFileName"`
	Id               *FlexInt64        `json:"Id"`
	Href             string            `json:"Href"`
}

type RemoteFile struct {
	Id               FlexInt64 `json:"Id"`
	EntityType       string    `json:"EntityType"`
	EntityId         FlexInt64 `json:"EntityId"`
	Title            string    `json:"Title"`
	PhysicalFileName string    `json:"PhysicalFileName"`
	CategoryId       FlexInt64 `json:"CategoryId"`
	Href             string    `json:"Href"`
}

// rawList lets list endpoints answer either with a bare array or with an
// envelope.
type rawList []json.RawMessage

func (l *rawList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		*l = arr
		return nil
	}
	var env struct {
		Data  []json.RawMessage `json:"data"`
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	if len(env.Data) > 0 {
		*l = env.Data
	} else {
		*l = env.Items
	}
	return nil
}
