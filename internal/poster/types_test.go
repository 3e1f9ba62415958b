// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

package poster

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestFlexFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{`12.5`, 12.5},
		{`"12.5"`, 12.5},
		{`" 7 "`, 7},
		{`null`, 0},
		{`"abc"`, 0},
		{`""`, 0},
		{`[1,2]`, 0},
		{`{"2":"300","1":"150"}`, 150},
		{`{}`, 0},
		{`true`, 1},
	}
	for _, tt := range tests {
		var f FlexFloat
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Errorf("Unmarshal(%s) error = %v", tt.in, err)
			continue
		}
		if float64(f) != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, f, tt.want)
		}
	}
}

func TestFlexString(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		`"abc"`: "abc",
		`123`:   "123",
		`null`:  "",
		`{}`:    "",
	}
	for in, want := range tests {
		var s FlexString
		if err := json.Unmarshal([]byte(in), &s); err != nil {
			t.Errorf("Unmarshal(%s) error = %v", in, err)
			continue
		}
		if s.String() != want {
			t.Errorf("Unmarshal(%s) = %q, want %q", in, s, want)
		}
	}
}

func TestIngredientFieldFallbacks(t *testing.T) {
	t.Parallel()

	var a, b Ingredient
	_ = json.Unmarshal([]byte(`{"ingredient_id":5,"storage":"3.5","critical_storage":10,"unit":"kg","cost":"2"}`), &a)
	_ = json.Unmarshal([]byte(`{"ingredient_id":"6","ingredient_left":4,"limit_value":"1","ingredient_unit":"l","prime_cost":9}`), &b)

	if a.IngredientID.String() != "5" || a.Quantity() != 3.5 || a.Minimum() != 10 || a.UnitLabel() != "kg" || a.UnitCost() != 2 {
		t.Errorf("a = id %s qty %v min %v unit %s cost %v", a.IngredientID, a.Quantity(), a.Minimum(), a.UnitLabel(), a.UnitCost())
	}
	if b.Quantity() != 4 || b.Minimum() != 1 || b.UnitLabel() != "l" || b.UnitCost() != 9 {
		t.Errorf("b = qty %v min %v unit %s cost %v", b.Quantity(), b.Minimum(), b.UnitLabel(), b.UnitCost())
	}
}

func TestTransactionClosedAt(t *testing.T) {
	t.Parallel()

	secs := Transaction{DateClose: 1767225600}
	millis := Transaction{DateClose: 1767225600000}
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if !secs.ClosedAt().Equal(want) {
		t.Errorf("seconds ClosedAt() = %v", secs.ClosedAt())
	}
	if !millis.ClosedAt().Equal(want) {
		t.Errorf("millis ClosedAt() = %v", millis.ClosedAt())
	}
	if !(&Transaction{}).ClosedAt().IsZero() {
		t.Error("zero date_close should give zero time")
	}
}

func TestDecodeList(t *testing.T) {
	t.Parallel()

	recs, skipped, err := DecodeList[Product](json.RawMessage(`[{"product_id":"1","product_name":"Taco"}, "junk", {"product_id":2}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || skipped != 1 {
		t.Fatalf("records = %d skipped = %d", len(recs), skipped)
	}
	if recs[0].Value.ProductName.String() != "Taco" || string(recs[0].Raw) != `{"product_id":"1","product_name":"Taco"}` {
		t.Errorf("first record = %+v raw %s", recs[0].Value, recs[0].Raw)
	}

	paged, _, err := DecodeList[Transaction](json.RawMessage(`{"count":1,"data":[{"transaction_id":9}]}`))
	if err != nil || len(paged) != 1 || paged[0].Value.TransactionID.String() != "9" {
		t.Errorf("paged = %+v, %v", paged, err)
	}

	if _, _, err := DecodeList[Product](json.RawMessage(`"nope"`)); err == nil {
		t.Error("expected error for scalar payload")
	}
}

func TestDecodePageTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		payload   string
		records   int
		total     int
		paginated bool
	}{
		{"array", `[{"transaction_id":1}]`, 1, -1, false},
		{"counted", `{"count":"250","data":[{"transaction_id":1},{"transaction_id":2}]}`, 2, 250, true},
		{"no count", `{"data":[]}`, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := DecodePage[Transaction](json.RawMessage(tt.payload))
			if err != nil {
				t.Fatal(err)
			}
			if len(p.Records) != tt.records || p.Total != tt.total || p.Paginated() != tt.paginated {
				t.Errorf("page = %d records, total %d, paginated %v", len(p.Records), p.Total, p.Paginated())
			}
		})
	}
}

func TestSpotAndSettingsFallbacks(t *testing.T) {
	t.Parallel()

	var spot Spot
	if err := json.Unmarshal([]byte(`{"spot_id":1,"spot_name":"Centro","spot_adress":"Av. Juarez 10"}`), &spot); err != nil {
		t.Fatal(err)
	}
	if spot.DisplayName() != "Centro" || spot.Location() != "Av. Juarez 10" {
		t.Errorf("spot = %q at %q", spot.DisplayName(), spot.Location())
	}

	tests := []struct {
		payload string
		want    string
	}{
		{`{"currency":{"currency_code_iso":"MXN","currency_symbol":"$"}}`, "MXN"},
		{`{"currency":{"currency_symbol":"$"}}`, "$"},
		{`{"currency":"EUR"}`, "EUR"},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var s Settings
		if err := json.Unmarshal([]byte(tt.payload), &s); err != nil {
			t.Fatalf("%s: %v", tt.payload, err)
		}
		if got := s.CurrencyCode(); got != tt.want {
			t.Errorf("CurrencyCode(%s) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}
