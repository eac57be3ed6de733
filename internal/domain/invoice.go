package domain

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// ============================================================
// Invoice document
// ============================================================

// Watermark kinds.
const (
	WatermarkText  = "text"
	WatermarkImage = "image"
)

// DefaultWatermarkText is the brand string stamped on a fresh document.
const DefaultWatermarkText = "DTECH"

// isoDate is the layout issue and due dates are stored in.
const isoDate = "2006-01-02"

// ClientInfo describes the billed party.
type ClientInfo struct {
	CompanyName   string `json:"companyName"`
	ContactPerson string `json:"contactPerson"`
	Address       string `json:"address"`
	Email         string `json:"email"`
}

// ProjectInfo describes the billed work. InvoiceNumber is free display text.
type ProjectInfo struct {
	ProjectName   string `json:"projectName"`
	Description   string `json:"description"`
	InvoiceNumber string `json:"invoiceNumber"`
}

// Document is the whole editable invoice. Values of this type are treated
// as immutable snapshots: every With* method returns a new Document and
// never touches the receiver's line items.
type Document struct {
	Logo             *string     `json:"logo"`
	Currency         string      `json:"currency"`
	CurrencySymbol   string      `json:"currencySymbol"`
	WatermarkType    string      `json:"watermarkType"`
	WatermarkText    string      `json:"watermarkText"`
	WatermarkImage   *string     `json:"watermarkImage"`
	WatermarkOpacity int         `json:"watermarkOpacity"`
	ClientInfo       ClientInfo  `json:"clientInfo"`
	ProjectInfo      ProjectInfo `json:"projectInfo"`
	IssueDate        string      `json:"issueDate"`
	DueDate          string      `json:"dueDate"`
	LineItems        []LineItem  `json:"lineItems"`
	TaxRate          float64     `json:"taxRate"`
	Discount         float64     `json:"discount"`
}

// DocumentOptions customizes NewDocument.
type DocumentOptions struct {
	// Now is the local clock reading used for issue and due dates.
	Now time.Time
	// NewID generates line-item identifiers.
	NewID func() string
	// WatermarkText overrides DefaultWatermarkText when non-empty.
	WatermarkText string
}

// NewDocument builds the default document a session starts with.
func NewDocument(opts DocumentOptions) Document {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	newID := opts.NewID
	if newID == nil {
		newID = NewLineItemID
	}
	watermark := opts.WatermarkText
	if watermark == "" {
		watermark = DefaultWatermarkText
	}

	return Document{
		Currency:         "USD",
		CurrencySymbol:   "$",
		WatermarkType:    WatermarkText,
		WatermarkText:    watermark,
		WatermarkOpacity: 15,
		ProjectInfo:      ProjectInfo{InvoiceNumber: "1"},
		IssueDate:        now.Format(isoDate),
		DueDate:          now.AddDate(0, 0, 30).Format(isoDate),
		LineItems: []LineItem{
			{ID: newID(), Description: "Software Development", Quantity: 40, Rate: 100},
			{ID: newID(), Description: "UI/UX Design", Quantity: 25, Rate: 80},
		},
		TaxRate:  5,
		Discount: 0,
	}
}

// Field names accepted by WithField.
const (
	FieldLogo             = "logo"
	FieldCurrency         = "currency"
	FieldCurrencySymbol   = "currencySymbol"
	FieldWatermarkType    = "watermarkType"
	FieldWatermarkText    = "watermarkText"
	FieldWatermarkImage   = "watermarkImage"
	FieldWatermarkOpacity = "watermarkOpacity"
	FieldClientInfo       = "clientInfo"
	FieldProjectInfo      = "projectInfo"
	FieldIssueDate        = "issueDate"
	FieldDueDate          = "dueDate"
	FieldLineItems        = "lineItems"
	FieldTaxRate          = "taxRate"
	FieldDiscount         = "discount"
)

// WithField returns a copy of d with one top-level field replaced.
// Numeric fields go through ParseNumberOrZero. Currency code and symbol are
// refused here: they only change together through WithCurrency.
func (d Document) WithField(field string, value any) (Document, error) {
	next := d.Clone()

	switch field {
	case FieldLogo:
		img, err := optionalString(field, value)
		if err != nil {
			return d, err
		}
		next.Logo = img
	case FieldWatermarkImage:
		img, err := optionalString(field, value)
		if err != nil {
			return d, err
		}
		next.WatermarkImage = img
	case FieldWatermarkType:
		kind, ok := value.(string)
		if !ok || (kind != WatermarkText && kind != WatermarkImage) {
			return d, &ErrValidation{Field: field, Message: "must be 'text' or 'image'"}
		}
		next.WatermarkType = kind
	case FieldWatermarkText:
		s, err := requireString(field, value)
		if err != nil {
			return d, err
		}
		next.WatermarkText = s
	case FieldWatermarkOpacity:
		next.WatermarkOpacity = clampOpacity(ParseNumberOrZero(value))
	case FieldIssueDate:
		s, err := requireString(field, value)
		if err != nil {
			return d, err
		}
		next.IssueDate = s
	case FieldDueDate:
		s, err := requireString(field, value)
		if err != nil {
			return d, err
		}
		next.DueDate = s
	case FieldTaxRate:
		next.TaxRate = ParseNumberOrZero(value)
	case FieldDiscount:
		next.Discount = ParseNumberOrZero(value)
	case FieldClientInfo:
		info, ok := value.(ClientInfo)
		if !ok {
			return d, &ErrValidation{Field: field, Message: "must be client info"}
		}
		next.ClientInfo = info
	case FieldProjectInfo:
		info, ok := value.(ProjectInfo)
		if !ok {
			return d, &ErrValidation{Field: field, Message: "must be project info"}
		}
		next.ProjectInfo = info
	case FieldLineItems:
		items, ok := value.([]LineItem)
		if !ok {
			return d, &ErrValidation{Field: field, Message: "must be a list of line items"}
		}
		if err := checkLineItemIDs(items); err != nil {
			return d, err
		}
		next.LineItems = slices.Clone(items)
	case FieldCurrency, FieldCurrencySymbol:
		return d, &ErrValidation{Field: field, Message: "currency code and symbol change only through currency selection"}
	default:
		return d, &ErrValidation{Field: field, Message: "unknown field"}
	}

	return next, nil
}

// checkLineItemIDs requires every item in a wholesale replacement to carry a
// non-empty id unique within the list.
func checkLineItemIDs(items []LineItem) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ID == "" {
			return &ErrValidation{Field: FieldLineItems, Message: "every line item needs an id"}
		}
		if _, dup := seen[item.ID]; dup {
			return &ErrValidation{Field: FieldLineItems, Message: fmt.Sprintf("duplicate line item id %q", item.ID)}
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// WithCurrency sets currency code and symbol together from the currency table.
func (d Document) WithCurrency(code string) (Document, error) {
	c, ok := LookupCurrency(code)
	if !ok {
		return d, &ErrValidation{Field: FieldCurrency, Message: fmt.Sprintf("unsupported currency %q", code)}
	}
	next := d.Clone()
	next.Currency = c.Code
	next.CurrencySymbol = c.Symbol
	return next, nil
}

// Client info fields.
const (
	ClientCompanyName   = "companyName"
	ClientContactPerson = "contactPerson"
	ClientAddress       = "address"
	ClientEmail         = "email"
)

// WithClientInfo replaces one client field, keeping its siblings.
func (d Document) WithClientInfo(field, value string) (Document, error) {
	next := d.Clone()
	switch field {
	case ClientCompanyName:
		next.ClientInfo.CompanyName = value
	case ClientContactPerson:
		next.ClientInfo.ContactPerson = value
	case ClientAddress:
		next.ClientInfo.Address = value
	case ClientEmail:
		next.ClientInfo.Email = value
	default:
		return d, &ErrValidation{Field: "clientInfo." + field, Message: "unknown field"}
	}
	return next, nil
}

// Project info fields.
const (
	ProjectName          = "projectName"
	ProjectDescription   = "description"
	ProjectInvoiceNumber = "invoiceNumber"
)

// WithProjectInfo replaces one project field, keeping its siblings.
func (d Document) WithProjectInfo(field, value string) (Document, error) {
	next := d.Clone()
	switch field {
	case ProjectName:
		next.ProjectInfo.ProjectName = value
	case ProjectDescription:
		next.ProjectInfo.Description = value
	case ProjectInvoiceNumber:
		next.ProjectInfo.InvoiceNumber = value
	default:
		return d, &ErrValidation{Field: "projectInfo." + field, Message: "unknown field"}
	}
	return next, nil
}

// Clone copies d so the copy shares no mutable backing storage with d.
func (d Document) Clone() Document {
	next := d
	next.LineItems = slices.Clone(d.LineItems)
	if d.Logo != nil {
		logo := *d.Logo
		next.Logo = &logo
	}
	if d.WatermarkImage != nil {
		img := *d.WatermarkImage
		next.WatermarkImage = &img
	}
	return next
}

func requireString(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", &ErrValidation{Field: field, Message: "must be text"}
	}
	return s, nil
}

// optionalString accepts nil (clear the image) or a string.
func optionalString(field string, value any) (*string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return &v, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		s := *v
		return &s, nil
	default:
		return nil, &ErrValidation{Field: field, Message: "must be an image data URL or null"}
	}
}

func clampOpacity(v float64) int {
	o := int(math.Round(v))
	switch {
	case o < 0:
		return 0
	case o > 100:
		return 100
	}
	return o
}
