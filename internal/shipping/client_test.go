package shipping_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fulfillment-service/internal/service"
	"fulfillment-service/internal/shipping"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var store = service.Address{
	Name:         "Test Store",
	Address1:     "123 Manufacturing Blvd",
	City:         "Toronto",
	ProvinceCode: "ON",
	PostalCode:   "M5V 2H1",
	CountryCode:  "CA",
}

var customer = service.Address{
	Name:         "Jane Doe",
	Email:        "jane@example.com",
	Address1:     "1 Main St",
	City:         "Ottawa",
	ProvinceCode: "ON",
	PostalCode:   "K1A 0A1",
	CountryCode:  "CA",
}

func newClient(baseURL string) *shipping.Client {
	return shipping.New(shipping.Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		UnitWeight:  0.5,
		UnitHeight:  1,
		Length:      9,
		Width:       12,
		WeightUnit:  "lbs",
		SizeUnit:    "cm",
		PostageType: "Cheapest",
		Store:       store,
	}, zap.NewNop())
}

func shipmentRequest(isReturn bool) service.ShipmentRequest {
	return service.ShipmentRequest{
		IdempotencyKey: "ship_cs_1_abc",
		Customer:       customer,
		IsReturn:       isReturn,
		Items: []service.ShipmentItem{
			{Description: "Shirt", SKU: "A-M-BLACK", Quantity: 2, Value: decimal.RequireFromString("45"), Currency: "cad"},
			{Description: "Hat", SKU: "B-OS-RED", Quantity: 1, Value: decimal.RequireFromString("19.999"), Currency: "cad"},
		},
	}
}

func TestBuildPayload(t *testing.T) {
	c := newClient("http://unused")
	p := c.BuildPayload(shipmentRequest(false))

	assert.InDelta(t, 1.5, p.Weight, 1e-9)
	assert.InDelta(t, 3.0, p.Height, 1e-9)
	assert.Equal(t, 9.0, p.Length)
	assert.Equal(t, 12.0, p.Width)
	assert.Equal(t, "Parcel", p.PackageType)
	assert.Equal(t, "Cheapest", p.PostageType)
	assert.False(t, p.IsReturn)

	assert.Equal(t, "Jane Doe", p.ToAddress.Name)
	require.NotNil(t, p.ReturnAddress)
	assert.Equal(t, "Test Store", p.ReturnAddress.Name)

	require.Len(t, p.Items, 2)
	assert.Equal(t, "CAD", p.Items[0].Currency)
	assert.Equal(t, 20.0, p.Items[1].Value)
	assert.Equal(t, "CA", p.Items[0].CountryOfOrigin)
}

func TestBuildPayload_ReturnSwapsAddresses(t *testing.T) {
	c := newClient("http://unused")
	req := shipmentRequest(true)
	req.PostageType = "Express"
	p := c.BuildPayload(req)

	assert.True(t, p.IsReturn)
	assert.Equal(t, "Test Store", p.ToAddress.Name)
	require.NotNil(t, p.ReturnAddress)
	assert.Equal(t, "Jane Doe", p.ReturnAddress.Name)
	assert.Equal(t, "Express", p.PostageType)
}

func TestCreateShipment(t *testing.T) {
	var (
		gotKey  string
		gotAuth string
		body    map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shipments", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"success":true,"tracking_code":"TRK123"}`))
	}))
	defer srv.Close()

	tracking, err := newClient(srv.URL+"/").CreateShipment(context.Background(), shipmentRequest(true))
	require.NoError(t, err)
	assert.Equal(t, "TRK123", tracking)
	assert.Equal(t, "ship_cs_1_abc", gotKey)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, true, body["is_return"])
	assert.Equal(t, 1.5, body["weight"])

	to := body["to_address"].(map[string]any)
	assert.Equal(t, "Test Store", to["name"])
}

func TestCreateShipment_Errors(t *testing.T) {
	t.Run("key required", func(t *testing.T) {
		req := shipmentRequest(false)
		req.IdempotencyKey = ""
		_, err := newClient("http://unused").CreateShipment(context.Background(), req)
		assert.Error(t, err)
	})

	t.Run("non 2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"bad postal code"}`))
		}))
		defer srv.Close()
		_, err := newClient(srv.URL).CreateShipment(context.Background(), shipmentRequest(false))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "422")
		assert.Contains(t, err.Error(), "bad postal code")
	})

	t.Run("no tracking code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":false,"message":"queued"}`))
		}))
		defer srv.Close()
		_, err := newClient(srv.URL).CreateShipment(context.Background(), shipmentRequest(false))
		assert.Error(t, err)
	})
}

func TestRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rates", r.URL.Path)
		assert.Empty(t, r.Header.Get("Idempotency-Key"))
		_, _ = w.Write([]byte(`{"success":true,"rates":[{"postage_type":"Express","total":21.5,"currency":"CAD"},{"postage_type":"Ground","total":9.75,"currency":"CAD"}]}`))
	}))
	defer srv.Close()

	rates, err := newClient(srv.URL).Rates(context.Background(), customer, shipmentRequest(false).Items)
	require.NoError(t, err)
	require.Len(t, rates, 2)

	best := shipping.CheapestRate(rates)
	require.NotNil(t, best)
	assert.Equal(t, "Ground", best.PostageType)
	assert.Nil(t, shipping.CheapestRate(nil))
}
