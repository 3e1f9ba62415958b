// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package poster

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// API methods used by the syncers.
const (
	MethodProducts         = "menu.getProducts"
	MethodCategories       = "menu.getCategories"
	MethodStorageInventory = "storage.getStorageInventory"
	MethodTransactions     = "transactions.getTransactions"
	MethodSpots            = "access.getSpots"
	MethodSettings         = "settings.getAllSettings"
)

// DateLayout is the date format for date_from and date_to.
const DateLayout = "2006-01-02"

// FlexFloat decodes numbers, numeric strings, and null. Anything it cannot
// read becomes 0 rather than failing the whole payload. Poster sends
// per-spot prices as an object keyed by spot id; the lowest spot id wins.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat(parseFlexFloat(bytes.TrimSpace(data)))
	return nil
}

func parseFlexFloat(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	switch data[0] {
	case '"':
		var s string
		if json.Unmarshal(data, &s) != nil {
			return 0
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case '{':
		var m map[string]json.RawMessage
		if json.Unmarshal(data, &m) != nil || len(m) == 0 {
			return 0
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return spotLess(keys[i], keys[j]) })
		return parseFlexFloat(bytes.TrimSpace(m[keys[0]]))
	case 't':
		if string(data) == "true" {
			return 1
		}
		return 0
	default:
		var v float64
		if json.Unmarshal(data, &v) != nil {
			return 0
		}
		return v
	}
}

func spotLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

// FlexString decodes strings and numbers as text. Other values become "".
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = ""
	if len(data) == 0 {
		return nil
	}
	switch {
	case data[0] == '"':
		var v string
		if json.Unmarshal(data, &v) == nil {
			*s = FlexString(v)
		}
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*s = FlexString(data)
	}
	return nil
}

// String returns the trimmed text.
func (s FlexString) String() string {
	return strings.TrimSpace(string(s))
}

// Product is one element of menu.getProducts.
type Product struct {
	ProductID          FlexString `json:"product_id"`
	ProductName        FlexString `json:"product_name"`
	ProductDescription FlexString `json:"product_description"`
	Price              FlexFloat  `json:"price"`
	MenuCategoryID     FlexString `json:"menu_category_id"`
	CategoryName       FlexString `json:"category_name"`
	Photo              FlexString `json:"photo"`
	PhotoOrigin        FlexString `json:"photo_origin"`
	Hidden             FlexFloat  `json:"hidden"`
}

// ImageURL prefers the original-size photo.
func (p *Product) ImageURL() string {
	if s := p.PhotoOrigin.String(); s != "" {
		return s
	}
	return p.Photo.String()
}

// Category is one element of menu.getCategories.
type Category struct {
	CategoryID   FlexString `json:"category_id"`
	CategoryName FlexString `json:"category_name"`
}

// Ingredient is one element of storage.getStorageInventory. Poster has
// shipped several names for the same fields; the accessors pick the first
// one present.
type Ingredient struct {
	IngredientID   FlexString `json:"ingredient_id"`
	IngredientName FlexString `json:"ingredient_name"`
	CategoryName   FlexString `json:"category_name"`

	Unit           FlexString `json:"unit"`
	UnitName       FlexString `json:"unit_name"`
	IngredientUnit FlexString `json:"ingredient_unit"`

	Storage        *FlexFloat `json:"storage"`
	StorageLeft    *FlexFloat `json:"storage_left"`
	IngredientLeft *FlexFloat `json:"ingredient_left"`

	CriticalStorage *FlexFloat `json:"critical_storage"`
	LimitValue      *FlexFloat `json:"limit_value"`

	Cost      *FlexFloat `json:"cost"`
	PrimeCost *FlexFloat `json:"prime_cost"`
}

// Quantity is the stock on hand.
func (i *Ingredient) Quantity() float64 {
	return firstFloat(i.Storage, i.StorageLeft, i.IngredientLeft)
}

// Minimum is the critical stock level; 0 means none configured.
func (i *Ingredient) Minimum() float64 {
	return firstFloat(i.CriticalStorage, i.LimitValue)
}

// UnitCost is the cost per unit.
func (i *Ingredient) UnitCost() float64 {
	return firstFloat(i.Cost, i.PrimeCost)
}

// UnitLabel is the measurement unit.
func (i *Ingredient) UnitLabel() string {
	for _, s := range []FlexString{i.Unit, i.UnitName, i.IngredientUnit} {
		if v := s.String(); v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(vals ...*FlexFloat) float64 {
	for _, v := range vals {
		if v != nil {
			return float64(*v)
		}
	}
	return 0
}

// TransactionStatusClosed is Poster's status for a closed (paid) check.
const TransactionStatusClosed = 2

// Transaction is one element of transactions.getTransactions.
type Transaction struct {
	TransactionID     FlexString `json:"transaction_id"`
	DateClose         FlexFloat  `json:"date_close"`
	Sum               FlexFloat  `json:"sum"`
	Status            FlexFloat  `json:"status"`
	PaymentMethodName FlexString `json:"payment_method_name"`
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds;
// seconds do not reach it until the year 33658.
const epochMillisThreshold = 1e12

// ClosedAt converts date_close to a UTC time. Zero means the check is open.
func (t *Transaction) ClosedAt() time.Time {
	v := float64(t.DateClose)
	if v <= 0 {
		return time.Time{}
	}
	if v >= epochMillisThreshold {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

// Closed reports whether Poster marks the check as closed.
func (t *Transaction) Closed() bool {
	return int(t.Status) == TransactionStatusClosed
}

// Record pairs a decoded vendor item with its raw JSON.
type Record[T any] struct {
	Value T
	Raw   json.RawMessage
}

// DecodeList decodes a response payload into records. The payload is
// normally an array; paginated methods wrap it as {"data": [...]}.
// Elements that are not JSON objects are skipped and counted.
func DecodeList[T any](payload json.RawMessage) (records []Record[T], skipped int, err error) {
	page, err := DecodePage[T](payload)
	return page.Records, page.Skipped, err
}

// Page is one decoded response of a list method.
type Page[T any] struct {
	Records []Record[T]
	Skipped int
	// Total is the "count" Poster reports for a paginated response, or -1
	// when the payload was a plain array.
	Total int
}

// Paginated reports whether the response came wrapped with a count.
func (p Page[T]) Paginated() bool {
	return p.Total >= 0
}

// DecodePage is DecodeList that also keeps the total count of a
// {"count": n, "data": [...]} payload.
func DecodePage[T any](payload json.RawMessage) (Page[T], error) {
	out := Page[T]{Total: -1}
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && payload[0] == '{' {
		var page struct {
			Count *FlexFloat      `json:"count"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &page); err != nil || len(page.Data) == 0 {
			return out, fmt.Errorf("payload is an object without a data list")
		}
		payload = bytes.TrimSpace(page.Data)
		out.Total = 0
		if page.Count != nil {
			out.Total = int(*page.Count)
		}
	}

	records, skipped, err := decodeItems[T](payload)
	out.Records, out.Skipped = records, skipped
	return out, err
}

func decodeItems[T any](payload json.RawMessage) (records []Record[T], skipped int, err error) {

	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, 0, fmt.Errorf("payload is not a list: %w", err)
	}

	records = make([]Record[T], 0, len(items))
	for _, raw := range items {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			skipped++
			continue
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			skipped++
			continue
		}
		records = append(records, Record[T]{Value: v, Raw: raw})
	}
	return records, skipped, nil
}

// Spot is one element of access.getSpots.
type Spot struct {
	SpotID     FlexString `json:"spot_id"`
	Name       FlexString `json:"name"`
	SpotName   FlexString `json:"spot_name"`
	Address    FlexString `json:"address"`
	SpotAdress FlexString `json:"spot_adress"`
	Phone      FlexString `json:"phone"`
}

// DisplayName returns the first name field present.
func (s *Spot) DisplayName() string {
	return firstString(s.Name, s.SpotName)
}

// Location returns the first address field present. Poster spells the
// legacy field "spot_adress".
func (s *Spot) Location() string {
	return firstString(s.Address, s.SpotAdress)
}

// Settings is the subset of settings.getAllSettings the restaurant profile
// uses.
type Settings struct {
	CompanyName FlexString `json:"company_name"`
	Email       FlexString `json:"email"`
	Phone       FlexString `json:"phone"`
	Timezone    FlexString `json:"timezone"`
	Country     FlexString `json:"country"`
	Currency    json.RawMessage `json:"currency"`
}

// CurrencyCode reads the currency as either a plain string or an object,
// preferring the ISO code over the display symbol.
func (s *Settings) CurrencyCode() string {
	raw := bytes.TrimSpace(s.Currency)
	if len(raw) == 0 || raw[0] != '{' {
		var code FlexString
		_ = code.UnmarshalJSON(raw)
		return code.String()
	}
	var c struct {
		Code   FlexString `json:"currency_code_iso"`
		Symbol FlexString `json:"currency_symbol"`
	}
	if json.Unmarshal(raw, &c) != nil {
		return ""
	}
	return firstString(c.Code, c.Symbol)
}

func firstString(values ...FlexString) string {
	for _, v := range values {
		if t := v.String(); t != "" {
			return t
		}
	}
	return ""
}
