package degiro

import (
	"fmt"
	"sort"

	"github.com/moznion/go-optional"
)

// Credentials are the long-lived login inputs. TOTPSecret is the base32 seed.
type Credentials struct {
	Username   string `validate:"required"`
	Password   string `validate:"required"`
	TOTPSecret string `validate:"required"`
}

// String never prints the password or the seed.
func (c Credentials) String() string {
	return "Credentials{Username: " + c.Username + ", Password: ***, TOTPSecret: ***}"
}

// ─── Login ───────────────────────────────────────────────────────────────────

type loginRequest struct {
	Username        string         `json:"username"`
	Password        string         `json:"password"`
	QueryParams     map[string]any `json:"queryParams"`
	OneTimePassword string         `json:"oneTimePassword"`
	SaveDevice      bool           `json:"saveDevice"`
}

// LoginResponse is the broker's reply to a TOTP login. Status 0 is success.
type LoginResponse struct {
	CaptchaRequired   bool   `json:"captchaRequired"`
	IsPassCodeEnabled bool   `json:"isPassCodeEnabled"`
	Locale            string `json:"locale"`
	RedirectURL       string `json:"redirectUrl"`
	SessionID         string `json:"sessionId"`
	Status            int    `json:"status"`
	StatusText        string `json:"statusText"`
	UserTokens        []any  `json:"userTokens"`
}

type clientResponse struct {
	Data ClientInfo `json:"data" degiro:"required"`
}

// ClientInfo is the account binding payload.
type ClientInfo struct {
	IntAccount int64                   `json:"intAccount" degiro:"required"`
	Username   optional.Option[string] `json:"username,omitempty"`
	Email      optional.Option[string] `json:"email,omitempty"`
	ClientRole optional.Option[string] `json:"clientRole,omitempty"`
}

// ─── Favorites ───────────────────────────────────────────────────────────────

type favoritesResponse struct {
	Data []FavoriteList `json:"data" degiro:"required"`
}

// FavoriteList is one watchlist.
type FavoriteList struct {
	ID         optional.Option[int64]  `json:"id,omitempty"`
	Name       optional.Option[string] `json:"name,omitempty"`
	IsDefault  optional.Option[bool]   `json:"isDefault,omitempty"`
	ProductIDs []int64                 `json:"productIds" degiro:"required"`
}

// ─── Products ────────────────────────────────────────────────────────────────

// Product is a tradable instrument. Only the first block is guaranteed; the
// rest depends on the product type.
type Product struct {
	ID            string  `json:"id" degiro:"required"`
	Name          string  `json:"name" degiro:"required"`
	Symbol        string  `json:"symbol" degiro:"required"`
	Currency      string  `json:"currency" degiro:"required"`
	ContractSize  float64 `json:"contractSize" degiro:"required"`
	ClosePrice    float64 `json:"closePrice" degiro:"required"`
	ProductTypeID int     `json:"productTypeId" degiro:"required"`
	Tradable      bool    `json:"tradable" degiro:"required"`

	ISIN            optional.Option[string]   `json:"isin,omitempty"`
	ProductType     optional.Option[string]   `json:"productType,omitempty"`
	Category        optional.Option[string]   `json:"category,omitempty"`
	Active          optional.Option[bool]     `json:"active,omitempty"`
	StrikePrice     optional.Option[float64]  `json:"strikePrice,omitempty"`
	ExchangeID      optional.Option[string]   `json:"exchangeId,omitempty"`
	OnlyEODPrices   optional.Option[bool]     `json:"onlyEodPrices,omitempty"`
	OrderTimeTypes  optional.Option[[]string] `json:"orderTimeTypes,omitempty"`
	BuyOrderTypes   optional.Option[[]string] `json:"buyOrderTypes,omitempty"`
	SellOrderTypes  optional.Option[[]string] `json:"sellOrderTypes,omitempty"`
	ClosePriceDate  optional.Option[string]   `json:"closePriceDate,omitempty"`
	IsShortable     optional.Option[bool]     `json:"isShortable,omitempty"`
	ProductBitTypes optional.Option[[]string] `json:"productBitTypes,omitempty"`

	FeedQuality       optional.Option[string] `json:"feedQuality,omitempty"`
	OrderBookDepth    optional.Option[int]    `json:"orderBookDepth,omitempty"`
	VWDIdentifierType optional.Option[string] `json:"vwdIdentifierType,omitempty"`
	VWDID             optional.Option[string] `json:"vwdId,omitempty"`
	QualitySwitchable optional.Option[bool]   `json:"qualitySwitchable,omitempty"`
	QualitySwitchFree optional.Option[bool]   `json:"qualitySwitchFree,omitempty"`
	VWDModuleID       optional.Option[int]    `json:"vwdModuleId,omitempty"`

	FeedQualitySecondary       optional.Option[string] `json:"feedQualitySecondary,omitempty"`
	OrderBookDepthSecondary    optional.Option[int]    `json:"orderBookDepthSecondary,omitempty"`
	VWDIdentifierTypeSecondary optional.Option[string] `json:"vwdIdentifierTypeSecondary,omitempty"`
	VWDIDSecondary             optional.Option[string] `json:"vwdIdSecondary,omitempty"`
	QualitySwitchableSecondary optional.Option[bool]   `json:"qualitySwitchableSecondary,omitempty"`
	QualitySwitchFreeSecondary optional.Option[bool]   `json:"qualitySwitchFreeSecondary,omitempty"`
	VWDModuleIDSecondary       optional.Option[int]    `json:"vwdModuleIdSecondary,omitempty"`
}

type productInfoResponse struct {
	Data ProductInfo `json:"data" degiro:"required"`
}

// ProductInfo is the product details response keyed by product id.
type ProductInfo map[string]Product

// Products returns every product ordered by id.
func (p ProductInfo) Products() []Product {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, p[id])
	}
	return out
}

// Product looks up one product by id.
func (p ProductInfo) Product(id string) (Product, bool) {
	prod, ok := p[id]
	return prod, ok
}

// Tradable returns the tradable products ordered by id.
func (p ProductInfo) Tradable() []Product {
	var out []Product
	for _, prod := range p.Products() {
		if prod.Tradable {
			out = append(out, prod)
		}
	}
	return out
}

// ByType returns products with the given product type id, ordered by id.
func (p ProductInfo) ByType(typeID int) []Product {
	var out []Product
	for _, prod := range p.Products() {
		if prod.ProductTypeID == typeID {
			out = append(out, prod)
		}
	}
	return out
}

// ProductSearch parameterises a product lookup. A zero Limit means DefaultSearchLimit.
type ProductSearch struct {
	Text   string `validate:"required"`
	Offset int    `validate:"gte=0"`
	Limit  int    `validate:"gte=0"`
}

// Validate checks the search arguments.
func (s ProductSearch) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: product search: %v", ErrInvalidRequest, err)
	}
	return nil
}

// ProductSearchResult is one page of lookup results.
type ProductSearchResult struct {
	Offset   int                  `json:"offset"`
	Total    optional.Option[int] `json:"total,omitempty"`
	Products []Product            `json:"products"`
}

// ─── Portfolio ───────────────────────────────────────────────────────────────

type portfolioResponse struct {
	Portfolio Portfolio `json:"portfolio" degiro:"required"`
}

type Portfolio struct {
	LastUpdated optional.Option[int64]  `json:"lastUpdated,omitempty"`
	Name        optional.Option[string] `json:"name,omitempty"`
	Rows        []PositionRow           `json:"value"`
	IsAdded     optional.Option[bool]   `json:"isAdded,omitempty"`
}

// PositionRow is one position. Cash rows use the currency code as id.
type PositionRow struct {
	ID      string                `json:"id" degiro:"required"`
	Name    string                `json:"name"`
	Fields  []PositionField       `json:"value"`
	IsAdded optional.Option[bool] `json:"isAdded,omitempty"`
}

type PositionField struct {
	Name    string                     `json:"name" degiro:"required"`
	Value   optional.Option[FlexValue] `json:"value,omitempty"`
	IsAdded optional.Option[bool]      `json:"isAdded,omitempty"`
}

// Field returns the named field's value if the row carries one.
func (r PositionRow) Field(name string) (FlexValue, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			v, err := f.Value.Take()
			return v, err == nil
		}
	}
	return FlexValue{}, false
}

// ProductIDs returns the ids of rows whose positionType is PRODUCT.
func (p Portfolio) ProductIDs() []string {
	var out []string
	for _, row := range p.Rows {
		if v, ok := row.Field("positionType"); ok && v.Kind == ValueString && v.String == "PRODUCT" {
			out = append(out, row.ID)
		}
	}
	return out
}

// ─── Reports ─────────────────────────────────────────────────────────────────

type historyResponse struct {
	Data []HistoryItem `json:"data" degiro:"required"`
}

// HistoryItem is one order history event. Older records lack most fields.
type HistoryItem struct {
	ProductID         int64                          `json:"productId" degiro:"required"`
	OrderID           optional.Option[string]        `json:"orderId,omitempty"`
	BuySell           optional.Option[OrderAction]   `json:"buysell,omitempty"`
	Created           optional.Option[Timestamp]     `json:"created,omitempty"`
	Last              optional.Option[Timestamp]     `json:"last,omitempty"`
	Active            optional.Option[bool]          `json:"isActive,omitempty"`
	OrderTypeID       optional.Option[OrderType]     `json:"orderTypeId,omitempty"`
	OrderTimeTypeID   optional.Option[OrderTimeType] `json:"orderTimeTypeId,omitempty"`
	Price             optional.Option[float64]       `json:"price,omitempty"`
	StopPrice         optional.Option[float64]       `json:"stopPrice,omitempty"`
	Size              optional.Option[float64]       `json:"size,omitempty"`
	CurrentTradedSize optional.Option[float64]       `json:"currentTradedSize,omitempty"`
	TotalTradedSize   optional.Option[float64]       `json:"totalTradedSize,omitempty"`
	Status            optional.Option[string]        `json:"status,omitempty"`
	Type              optional.Option[string]        `json:"type,omitempty"`
}

type transactionsResponse struct {
	Data []TransactionItem `json:"data" degiro:"required"`
}

// TransactionItem is one executed transaction.
type TransactionItem struct {
	ID                         int64                        `json:"id" degiro:"required"`
	ProductID                  int64                        `json:"productId" degiro:"required"`
	Date                       optional.Option[Timestamp]   `json:"date,omitempty"`
	BuySell                    optional.Option[OrderAction] `json:"buysell,omitempty"`
	Price                      optional.Option[float64]     `json:"price,omitempty"`
	Quantity                   optional.Option[float64]     `json:"quantity,omitempty"`
	Total                      optional.Option[float64]     `json:"total,omitempty"`
	TotalInBaseCurrency        optional.Option[float64]     `json:"totalInBaseCurrency,omitempty"`
	TotalPlusFeeInBaseCurrency optional.Option[float64]     `json:"totalPlusFeeInBaseCurrency,omitempty"`
	FxRate                     optional.Option[float64]     `json:"fxRate,omitempty"`
	AutoFxFeeInBaseCurrency    optional.Option[float64]     `json:"autoFxFeeInBaseCurrency,omitempty"`
	FeeInBaseCurrency          optional.Option[float64]     `json:"feeInBaseCurrency,omitempty"`
	OrderTypeID                optional.Option[OrderType]   `json:"orderTypeId,omitempty"`
	TransactionTypeID          optional.Option[int]         `json:"transactionTypeId,omitempty"`
	TradingVenue               optional.Option[string]      `json:"tradingVenue,omitempty"`
	ExecutingEntityID          optional.Option[string]      `json:"executingEntityId,omitempty"`
}

// ─── Orders ──────────────────────────────────────────────────────────────────

type checkOrderResponse struct {
	Data CheckOrderResult `json:"data" degiro:"required"`
}

// CheckOrderResult is the pre-trade check. ConfirmationID finalises the order.
type CheckOrderResult struct {
	ConfirmationID          string                   `json:"confirmationId" degiro:"required"`
	FreeSpaceNew            optional.Option[float64] `json:"freeSpaceNew,omitempty"`
	TransactionFees         []Fee                    `json:"transactionFees,omitempty"`
	TransactionTaxes        []Fee                    `json:"transactionTaxes,omitempty"`
	TransactionOppositeFees []Fee                    `json:"transactionOppositeFees,omitempty"`
	ShowExAnteReportLink    optional.Option[bool]    `json:"showExAnteReportLink,omitempty"`
}

type Fee struct {
	ID       optional.Option[int]    `json:"id,omitempty"`
	Amount   float64                 `json:"amount" degiro:"required"`
	Currency optional.Option[string] `json:"currency,omitempty"`
}

type confirmOrderResponse struct {
	Data ConfirmOrderResult `json:"data" degiro:"required"`
}

type ConfirmOrderResult struct {
	OrderID string `json:"orderId" degiro:"required"`
}

// ─── Account ─────────────────────────────────────────────────────────────────

type accountInfoResponse struct {
	Data AccountInfo `json:"data" degiro:"required"`
}

// AccountInfo describes the bound account.
type AccountInfo struct {
	ClientID            int64                    `json:"clientId" degiro:"required"`
	BaseCurrency        string                   `json:"baseCurrency" degiro:"required"`
	MarginType          optional.Option[string]  `json:"marginType,omitempty"`
	CashFunds           map[string][]CashFund    `json:"cashFunds,omitempty"`
	CompensationCapping optional.Option[float64] `json:"compensationCapping,omitempty"`
	CurrencyPairs       map[string]CurrencyPair  `json:"currencyPairs,omitempty"`
}

type CashFund struct {
	ID         int64                   `json:"id" degiro:"required"`
	Name       optional.Option[string] `json:"name,omitempty"`
	ProductIDs []int64                 `json:"productIds,omitempty"`
}

type CurrencyPair struct {
	ID    int64                      `json:"id" degiro:"required"`
	Price optional.Option[FlexValue] `json:"price,omitempty"`
}

type accountOverviewResponse struct {
	Data AccountOverview `json:"data" degiro:"required"`
}

type AccountOverview struct {
	CashMovements []CashMovement `json:"cashMovements"`
}

// CashMovement is one entry of the account statement.
type CashMovement struct {
	Date         optional.Option[Timestamp] `json:"date,omitempty"`
	ValueDate    optional.Option[Timestamp] `json:"valueDate,omitempty"`
	ID           optional.Option[int64]     `json:"id,omitempty"`
	OrderID      optional.Option[string]    `json:"orderId,omitempty"`
	ProductID    optional.Option[int64]     `json:"productId,omitempty"`
	Description  string                     `json:"description" degiro:"required"`
	Currency     optional.Option[string]    `json:"currency,omitempty"`
	Change       optional.Option[float64]   `json:"change,omitempty"`
	Type         optional.Option[string]    `json:"type,omitempty"`
	ExchangeRate optional.Option[float64]   `json:"exchangeRate,omitempty"`
	Balance      optional.Option[Balance]   `json:"balance,omitempty"`
}

type Balance struct {
	UnsettledCash optional.Option[float64]           `json:"unsettledCash,omitempty"`
	FlatexCash    optional.Option[float64]           `json:"flatexCash,omitempty"`
	CashFund      optional.Option[[]CashFundBalance] `json:"cashFund,omitempty"`
	Total         optional.Option[float64]           `json:"total,omitempty"`
}

type CashFundBalance struct {
	ID            optional.Option[int64]   `json:"id,omitempty"`
	Participation optional.Option[float64] `json:"participation,omitempty"`
	Price         optional.Option[float64] `json:"price,omitempty"`
}
