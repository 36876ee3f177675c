package refdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"agrogest/internal/dose"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientConfig{BaseURL: "  "}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestClientParcels(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/parcels" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("unexpected Accept header %q", accept)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Finca Norte","area":2.5,"crop":"Olive"}]`))
	})

	parcels, err := client.Parcels(context.Background())
	if err != nil {
		t.Fatalf("Parcels() error = %v", err)
	}
	if len(parcels) != 1 || parcels[0].Area != 2.5 || parcels[0].Crop != "Olive" {
		t.Fatalf("unexpected parcels %+v", parcels)
	}
}

func TestClientProductsResolveDoseType(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/products/spraying" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"id":4,"name":"Cobre","dose":2,"dose_type":"kg_per_1000l","dose_type_display":"kg/1000L agua"},
			{"id":5,"name":"Aceite","dose":null,"dose_type":"pct","dose_type_display":"%"}
		]`))
	})

	products, err := client.Products(context.Background(), "spraying")
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Basis != dose.Per1000LCarrier || products[0].Unit != dose.Mass {
		t.Fatalf("unexpected basis/unit for first product: %+v", products[0])
	}
	if got := products[0].DefaultDoseLabel(); got != "2 kg/1000L agua" {
		t.Fatalf("DefaultDoseLabel() = %q", got)
	}
	if products[1].Basis != dose.PercentCarrier || products[1].DefaultDose().Valid {
		t.Fatalf("unexpected second product: %+v", products[1])
	}
}

func TestClientFailuresAreUnavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"id":`))
			},
		},
		{
			name: "unknown dose type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[{"id":1,"name":"X","dose":1,"dose_type":"g_per_plant"}]`))
			},
		},
		{
			name: "missing id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[{"name":"X","dose":1,"dose_type":"l_per_ha"}]`))
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, tt.handler)
			_, err := client.Products(context.Background(), "fertigation")
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestClientTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(ClientConfig{BaseURL: url})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.Machines(context.Background()); !IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}
