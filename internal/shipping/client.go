package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fulfillment-service/internal/service"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	packageType   = "Parcel"
	originCountry = "CA"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	UnitWeight  float64
	UnitHeight  float64
	Length      float64
	Width       float64
	WeightUnit  string
	SizeUnit    string
	PostageType string
	// адрес магазина: отправитель и получатель возвратов
	Store service.Address
}

// Client: клиент Stallion Express. Реализует service.Shipper.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

var _ service.Shipper = (*Client)(nil)

func New(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

type addressPayload struct {
	Name          string `json:"name"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2,omitempty"`
	City          string `json:"city"`
	ProvinceCode  string `json:"province_code"`
	PostalCode    string `json:"postal_code"`
	CountryCode   string `json:"country_code"`
	Email         string `json:"email,omitempty"`
	IsResidential bool   `json:"is_residential"`
}

type itemPayload struct {
	Description              string  `json:"description"`
	SKU                      string  `json:"sku"`
	Quantity                 int     `json:"quantity"`
	Value                    float64 `json:"value"`
	Currency                 string  `json:"currency"`
	CountryOfOrigin          string  `json:"country_of_origin"`
	ManufacturerName         string  `json:"manufacturer_name,omitempty"`
	ManufacturerAddress1     string  `json:"manufacturer_address1,omitempty"`
	ManufacturerCity         string  `json:"manufacturer_city,omitempty"`
	ManufacturerProvinceCode string  `json:"manufacturer_province_code,omitempty"`
	ManufacturerPostalCode   string  `json:"manufacturer_postal_code,omitempty"`
	ManufacturerCountryCode  string  `json:"manufacturer_country_code,omitempty"`
}

type ShipmentPayload struct {
	ToAddress     addressPayload  `json:"to_address"`
	ReturnAddress *addressPayload `json:"return_address,omitempty"`
	IsReturn      bool            `json:"is_return"`
	WeightUnit    string          `json:"weight_unit"`
	Weight        float64         `json:"weight"`
	Length        float64         `json:"length"`
	Width         float64         `json:"width"`
	Height        float64         `json:"height"`
	SizeUnit      string          `json:"size_unit"`
	Items         []itemPayload   `json:"items"`
	PackageType   string          `json:"package_type"`
	PostageType   string          `json:"postage_type,omitempty"`
}

type shipmentResponse struct {
	Success      bool   `json:"success"`
	TrackingCode string `json:"tracking_code"`
	Message      string `json:"message"`
}

type Rate struct {
	PostageType  string  `json:"postage_type"`
	Total        float64 `json:"total"`
	Currency     string  `json:"currency"`
	DeliveryDays string  `json:"delivery_days,omitempty"`
}

type ratesResponse struct {
	Success bool   `json:"success"`
	Rates   []Rate `json:"rates"`
}

func toAddressPayload(a service.Address, residential bool) addressPayload {
	return addressPayload{
		Name:          a.Name,
		Address1:      a.Address1,
		Address2:      a.Address2,
		City:          a.City,
		ProvinceCode:  a.ProvinceCode,
		PostalCode:    a.PostalCode,
		CountryCode:   a.CountryCode,
		Email:         a.Email,
		IsResidential: residential,
	}
}

// BuildPayload: вес и высота растут линейно с общим количеством единиц.
// Для возврата адреса меняются местами: получатель: магазин.
func (c *Client) BuildPayload(req service.ShipmentRequest) ShipmentPayload {
	units := 0
	items := make([]itemPayload, 0, len(req.Items))
	for _, it := range req.Items {
		units += it.Quantity
		items = append(items, itemPayload{
			Description:              it.Description,
			SKU:                      it.SKU,
			Quantity:                 it.Quantity,
			Value:                    it.Value.Round(2).InexactFloat64(),
			Currency:                 strings.ToUpper(it.Currency),
			CountryOfOrigin:          originCountry,
			ManufacturerName:         c.cfg.Store.Name,
			ManufacturerAddress1:     c.cfg.Store.Address1,
			ManufacturerCity:         c.cfg.Store.City,
			ManufacturerProvinceCode: c.cfg.Store.ProvinceCode,
			ManufacturerPostalCode:   c.cfg.Store.PostalCode,
			ManufacturerCountryCode:  c.cfg.Store.CountryCode,
		})
	}

	n := decimal.NewFromInt(int64(units))
	weight := decimal.NewFromFloat(c.cfg.UnitWeight).Mul(n).Round(3).InexactFloat64()
	height := decimal.NewFromFloat(c.cfg.UnitHeight).Mul(n).Round(3).InexactFloat64()

	postage := req.PostageType
	if postage == "" {
		postage = c.cfg.PostageType
	}

	customer := toAddressPayload(req.Customer, true)
	store := toAddressPayload(c.cfg.Store, false)

	p := ShipmentPayload{
		ToAddress:     customer,
		ReturnAddress: &store,
		IsReturn:      req.IsReturn,
		WeightUnit:    c.cfg.WeightUnit,
		Weight:        weight,
		Length:        c.cfg.Length,
		Width:         c.cfg.Width,
		Height:        height,
		SizeUnit:      c.cfg.SizeUnit,
		Items:         items,
		PackageType:   packageType,
		PostageType:   postage,
	}
	if req.IsReturn {
		p.ToAddress = store
		p.ReturnAddress = &customer
	}
	return p
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("carrier responded %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateShipment возвращает трек-номер. Повтор с тем же ключом не создаёт второе отправление.
func (c *Client) CreateShipment(ctx context.Context, req service.ShipmentRequest) (string, error) {
	if req.IdempotencyKey == "" {
		return "", errors.New("shipment idempotency key is required")
	}
	payload := c.BuildPayload(req)

	var out shipmentResponse
	if err := c.post(ctx, "/shipments", req.IdempotencyKey, payload, &out); err != nil {
		c.log.Warn("stallion shipment request failed",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Bool("is_return", req.IsReturn),
			zap.Error(err))
		return "", err
	}
	if out.TrackingCode == "" {
		return "", fmt.Errorf("carrier response has no tracking code: %s", out.Message)
	}

	c.log.Info("stallion shipment created",
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.String("tracking", out.TrackingCode),
		zap.Bool("is_return", req.IsReturn),
		zap.Float64("weight", payload.Weight))
	return out.TrackingCode, nil
}

// Rates запрашивает тарифы для корзины до оформления заказа.
func (c *Client) Rates(ctx context.Context, to service.Address, items []service.ShipmentItem) ([]Rate, error) {
	payload := c.BuildPayload(service.ShipmentRequest{Customer: to, Items: items})
	payload.PostageType = ""

	var out ratesResponse
	if err := c.post(ctx, "/rates", "", payload, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, nil
	}
	return out.Rates, nil
}

// CheapestRate: тариф с минимальной стоимостью или nil.
func CheapestRate(rates []Rate) *Rate {
	var best *Rate
	for i := range rates {
		if best == nil || rates[i].Total < best.Total {
			best = &rates[i]
		}
	}
	return best
}
