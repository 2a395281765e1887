package degiro

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Required fields ─────────────────────────────────────────────────────────

func TestDecode_ProductMissingAllOptionalFields(t *testing.T) {
	body := `{"data":{"1":{
		"id":"1","name":"Apple","symbol":"AAPL","currency":"USD",
		"contractSize":1.0,"closePrice":189.5,"productTypeId":1,"tradable":true
	}}}`

	var resp productInfoResponse
	require.NoError(t, decode([]byte(body), &resp))

	p, ok := resp.Data.Product("1")
	require.True(t, ok)
	assert.Equal(t, "AAPL", p.Symbol)
	assert.Equal(t, 189.5, p.ClosePrice)
	assert.True(t, p.ISIN.IsNone())
	assert.True(t, p.StrikePrice.IsNone())
	assert.True(t, p.BuyOrderTypes.IsNone())
	assert.True(t, p.FeedQualitySecondary.IsNone())
	assert.True(t, p.VWDModuleIDSecondary.IsNone())
}

func TestDecode_ProductOptionalFieldsPresent(t *testing.T) {
	body := `{"data":{"1":{
		"id":"1","name":"Call","symbol":"C","currency":"EUR",
		"contractSize":100,"closePrice":2.1,"productTypeId":8,"tradable":false,
		"isin":"NL0000000001","strikePrice":25.5,"buyOrderTypes":["LIMIT","MARKET"],
		"orderBookDepth":5,"feedQualitySecondary":null,"someFutureField":{"x":1}
	}}}`

	var resp productInfoResponse
	require.NoError(t, decode([]byte(body), &resp))

	p := resp.Data["1"]
	assert.Equal(t, "NL0000000001", p.ISIN.Unwrap())
	assert.Equal(t, 25.5, p.StrikePrice.Unwrap())
	assert.Equal(t, []string{"LIMIT", "MARKET"}, p.BuyOrderTypes.Unwrap())
	assert.Equal(t, 5, p.OrderBookDepth.Unwrap())
	assert.True(t, p.FeedQualitySecondary.IsNone(), "null decodes to absent")
}

func TestDecode_MissingRequiredField_ReportsPath(t *testing.T) {
	tests := []struct {
		name string
		body string
		out  any
		path string
	}{
		{
			name: "product symbol",
			body: `{"data":{"42":{"id":"42","name":"X","currency":"EUR","contractSize":1,"closePrice":1,"productTypeId":1,"tradable":true}}}`,
			out:  &productInfoResponse{},
			path: "$.data.42.symbol",
		},
		{
			name: "favorites product ids",
			body: `{"data":[{"productIds":[1]},{"name":"empty"}]}`,
			out:  &favoritesResponse{},
			path: "$.data[1].productIds",
		},
		{
			name: "envelope data",
			body: `{"items":[]}`,
			out:  &favoritesResponse{},
			path: "$.data",
		},
		{
			name: "null counts as missing",
			body: `{"data":{"confirmationId":null}}`,
			out:  &checkOrderResponse{},
			path: "$.data.confirmationId",
		},
		{
			name: "required inside optional",
			body: `{"data":{"cashMovements":[{"balance":{"total":1}}]}}`,
			out:  &accountOverviewResponse{},
			path: "$.data.cashMovements[0].description",
		},
		{
			name: "null body",
			body: `null`,
			out:  &clientResponse{},
			path: "$",
		},
		{
			name: "null list element",
			body: `{"data":[null]}`,
			out:  &favoritesResponse{},
			path: "$.data[0]",
		},
		{
			name: "null record",
			body: `{"data":null}`,
			out:  &clientResponse{},
			path: "$.data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decode([]byte(tt.body), tt.out)
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.path, se.Path)
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestDecode_TypeMismatch_ReportsField(t *testing.T) {
	err := decode([]byte(`{"data":{"intAccount":"not-a-number"}}`), &clientResponse{})

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "$.data.intAccount", se.Path)
}

func TestDecode_NullOptionalFieldsAccepted(t *testing.T) {
	var resp favoritesResponse
	require.NoError(t, decode([]byte(`{"data":[{"productIds":[1],"id":null,"name":null}]}`), &resp))
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Name.IsNone())
}

func TestDecode_FieldDecoderError_ReportsPath(t *testing.T) {
	tests := []struct {
		name string
		body string
		out  any
		path string
	}{
		{
			name: "non-integer order type",
			body: `{"data":[{"productId":1,"orderTypeId":1.5}]}`,
			out:  &historyResponse{},
			path: "$.data[0].orderTypeId",
		},
		{
			name: "unparseable timestamp",
			body: `{"data":[{"productId":1},{"productId":2,"created":"yesterday"}]}`,
			out:  &historyResponse{},
			path: "$.data[1].created",
		},
		{
			name: "value outside every variant",
			body: `{"portfolio":{"value":[{"id":"1","name":"positionrow","value":[{"name":"size","value":true}]}]}}`,
			out:  &portfolioResponse{},
			path: "$.portfolio.value[0].value[0].value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decode([]byte(tt.body), tt.out)
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.path, se.Path)
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	err := decode([]byte(`{"data":`), &favoritesResponse{})

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "$", se.Path)
}

// ─── Open enumerations ───────────────────────────────────────────────────────

func TestOrderType_UnknownCodeRoundTrips(t *testing.T) {
	var ot OrderType
	require.NoError(t, json.Unmarshal([]byte(`7`), &ot))

	assert.Equal(t, OrderTypeUnknown, ot.Kind())
	assert.Equal(t, 7, ot.Code())
	assert.Equal(t, "UNKNOWN(7)", ot.String())

	out, err := json.Marshal(ot)
	require.NoError(t, err)
	assert.Equal(t, "7", string(out))
}

func TestHistoryItem_UnrecognisedSideDecodesUnknown(t *testing.T) {
	body := `{"data":[{"productId":1,"buysell":"X"},{"productId":2,"buysell":"b"}]}`

	var resp historyResponse
	require.NoError(t, decode([]byte(body), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, ActionUnknown, resp.Data[0].BuySell.Unwrap())
	assert.Equal(t, ActionBuy, resp.Data[1].BuySell.Unwrap())
}

func TestOrderType_KnownCodes(t *testing.T) {
	for code, want := range map[string]OrderType{
		"0": OrderTypeLimit, "1": OrderTypeStopLimit, "2": OrderTypeMarket, "3": OrderTypeStopLoss, `"2"`: OrderTypeMarket,
	} {
		var ot OrderType
		require.NoError(t, json.Unmarshal([]byte(code), &ot))
		assert.Equal(t, want, ot.Kind(), code)
	}
}

func TestOrderTimeType_UnknownCodeRoundTrips(t *testing.T) {
	var tt OrderTimeType
	require.NoError(t, json.Unmarshal([]byte(`2`), &tt))
	assert.Equal(t, OrderTimeTypeUnknown, tt.Kind())

	out, err := json.Marshal(tt)
	require.NoError(t, err)
	assert.Equal(t, "2", string(out))
}

func TestOrderType_NonIntegerFails(t *testing.T) {
	var ot OrderType
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &ot))
	assert.Error(t, json.Unmarshal([]byte(`"LIMIT"`), &ot))
}

func TestHistoryItem_UnknownEnumsInPayload(t *testing.T) {
	body := `{"data":[{"productId":331868,"orderTypeId":7,"orderTimeTypeId":0,"buysell":"S","created":"2024-03-01T09:12:44+01:00","last":"2024-03-01T09:12:45"}]}`

	var resp historyResponse
	require.NoError(t, decode([]byte(body), &resp))
	require.Len(t, resp.Data, 1)

	item := resp.Data[0]
	assert.Equal(t, OrderTypeUnknown, item.OrderTypeID.Unwrap().Kind())
	assert.Equal(t, OrderTimeTypeUnknown, item.OrderTimeTypeID.Unwrap().Kind())
	assert.Equal(t, ActionSell, item.BuySell.Unwrap())
	assert.Equal(t, 2024, item.Created.Unwrap().Year())
	assert.Equal(t, 45, item.Last.Unwrap().Second())
	assert.True(t, item.Price.IsNone())

	out, err := json.Marshal(item.OrderTypeID.Unwrap())
	require.NoError(t, err)
	assert.Equal(t, "7", string(out))
}

// ─── Untagged value unions ───────────────────────────────────────────────────

func TestFlexValue_OrderedAttempt(t *testing.T) {
	tests := []struct {
		in   string
		want FlexValue
	}{
		{`"PRODUCT"`, StringValue("PRODUCT")},
		{`"12.5"`, StringValue("12.5")},
		{`12.5`, NumberValue(12.5)},
		{`{"EUR":1.0,"USD":1.08}`, MapValue(map[string]float64{"EUR": 1.0, "USD": 1.08})},
		{`null`, FlexValue{}},
	}
	for _, tt := range tests {
		var v FlexValue
		require.NoError(t, json.Unmarshal([]byte(tt.in), &v), tt.in)
		assert.Equal(t, tt.want, v, tt.in)
	}
}

func TestFlexValue_NoMatchingVariant(t *testing.T) {
	var v FlexValue
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"EUR":"x"}`), &v))
}

func TestPortfolio_MixedValueFields(t *testing.T) {
	body := `{"portfolio":{"lastUpdated":12,"name":"portfolio","isAdded":true,"value":[
		{"name":"positionrow","id":"331868","isAdded":true,"value":[
			{"name":"positionType","value":"PRODUCT","isAdded":true},
			{"name":"size","value":10,"isAdded":true},
			{"name":"breakEvenPrice","value":{"EUR":120.4},"isAdded":true},
			{"name":"accruedInterest","isAdded":true}
		]},
		{"name":"positionrow","id":"EUR","isAdded":true,"value":[
			{"name":"positionType","value":"CASH","isAdded":true}
		]}
	]}}`

	var resp portfolioResponse
	require.NoError(t, decode([]byte(body), &resp))

	p := resp.Portfolio
	require.Len(t, p.Rows, 2)
	assert.Equal(t, []string{"331868"}, p.ProductIDs())

	size, ok := p.Rows[0].Field("size")
	require.True(t, ok)
	n, ok := size.Float()
	require.True(t, ok)
	assert.Equal(t, 10.0, n)

	bep, ok := p.Rows[0].Field("breakEvenPrice")
	require.True(t, ok)
	assert.Equal(t, ValueMap, bep.Kind)
	assert.Equal(t, 120.4, bep.Map["EUR"])

	_, ok = p.Rows[0].Field("accruedInterest")
	assert.False(t, ok, "absent value")
}

func TestPortfolio_InvalidValueVariant_SchemaError(t *testing.T) {
	body := `{"portfolio":{"value":[{"id":"1","name":"positionrow","value":[{"name":"size","value":[1]}]}]}}`

	err := decode([]byte(body), &portfolioResponse{})
	assert.ErrorIs(t, err, ErrSchema)
	assert.ErrorIs(t, err, errNoVariant)

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "$.portfolio.value[0].value[0].value", se.Path)
}
