package treasury

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{
			name:    "valid config",
			config:  &Config{BaseURL: "https://treasury.internal", APIKey: "secret"},
			wantErr: nil,
		},
		{
			name:    "missing base URL",
			config:  &Config{APIKey: "secret"},
			wantErr: ErrTreasuryMissingBaseURL,
		},
		{
			name:    "base URL without scheme",
			config:  &Config{BaseURL: "treasury.internal", APIKey: "secret"},
			wantErr: ErrTreasuryInvalidBaseURL,
		},
		{
			name:    "missing API key",
			config:  &Config{BaseURL: "https://treasury.internal"},
			wantErr: ErrTreasuryMissingAPIKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client, server
}

func TestClient_ExecuteTransfer(t *testing.T) {
	input := TransferInput{
		IdempotencyKey: "idem-123",
		PayoutID:       uuid.New(),
		MerchantID:     uuid.New(),
		Amount:         decimal.NewFromFloat(150.50),
		FiatCurrency:   "USD",
		CryptoCurrency: "USDC",
		WalletAddress:  "0x9e8f3b2a1c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f",
	}

	t.Run("accepted transfer", func(t *testing.T) {
		var gotReq transferRequest
		var gotIdemKey, gotAuth string

		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, transfersPath, r.URL.Path)
			gotIdemKey = r.Header.Get("Idempotency-Key")
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(transferResponse{
				ID:          "tr_001",
				Status:      "submitted",
				TxHash:      "0xabc",
				SubmittedAt: "2026-08-27T10:00:00Z",
			})
		})

		output, err := client.ExecuteTransfer(context.Background(), input)
		require.NoError(t, err)

		assert.Equal(t, "tr_001", output.TransferID)
		assert.Equal(t, TransferStatusSubmitted, output.Status)
		assert.True(t, output.Status.Accepted())
		assert.Equal(t, "0xabc", output.TxHash)
		require.NotNil(t, output.SubmittedAt)

		assert.Equal(t, "idem-123", gotIdemKey)
		assert.Equal(t, "Bearer test-key", gotAuth)
		assert.Equal(t, input.PayoutID.String(), gotReq.Reference)
		assert.Equal(t, "150.50", gotReq.Amount)
		assert.Equal(t, "USDC", gotReq.CryptoCurrency)
		assert.Equal(t, input.WalletAddress, gotReq.WalletAddress)
	})

	t.Run("missing idempotency key", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("request should not reach the server")
		})

		noKey := input
		noKey.IdempotencyKey = ""
		_, err := client.ExecuteTransfer(context.Background(), noKey)
		assert.Error(t, err)
	})

	t.Run("validation rejection is permanent", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(errorResponse{
				Code:    "INVALID_ADDRESS",
				Message: "wallet address fails checksum",
			})
		})

		_, err := client.ExecuteTransfer(context.Background(), input)
		require.Error(t, err)

		var remote *RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, "INVALID_ADDRESS", remote.Code)
		assert.True(t, remote.IsPermanent())
		assert.True(t, IsPermanentError(err))
	})

	t.Run("rate limit is not permanent", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.ExecuteTransfer(context.Background(), input)
		require.Error(t, err)
		assert.False(t, IsPermanentError(err))
	})

	t.Run("server error maps to ErrUnavailable", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.ExecuteTransfer(context.Background(), input)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.False(t, IsPermanentError(err))
	})

	t.Run("unreachable server maps to ErrUnavailable", func(t *testing.T) {
		client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		server.Close()

		_, err := client.ExecuteTransfer(context.Background(), input)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestClient_GetTransfer(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/v1/transfers/tr_002", r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(transferResponse{ID: "tr_002", Status: "confirmed", TxHash: "0xdef"})
		})

		output, err := client.GetTransfer(context.Background(), "tr_002")
		require.NoError(t, err)
		assert.Equal(t, TransferStatusConfirmed, output.Status)
		assert.Equal(t, "0xdef", output.TxHash)
	})

	t.Run("empty transfer ID", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("request should not reach the server")
		})

		_, err := client.GetTransfer(context.Background(), "")
		assert.Error(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(errorResponse{Code: "TRANSFER_NOT_FOUND", Message: "no such transfer"})
		})

		_, err := client.GetTransfer(context.Background(), "tr_missing")
		var remote *RemoteError
		require.True(t, errors.As(err, &remote))
		assert.Equal(t, http.StatusNotFound, remote.StatusCode)
	})
}

func TestMapTransferStatus(t *testing.T) {
	tests := []struct {
		remote string
		want   TransferStatus
	}{
		{"queued", TransferStatusQueued},
		{"pending", TransferStatusQueued},
		{"submitted", TransferStatusSubmitted},
		{"broadcasting", TransferStatusSubmitted},
		{"confirmed", TransferStatusConfirmed},
		{"settled", TransferStatusConfirmed},
		{"rejected", TransferStatusRejected},
		{"failed", TransferStatusRejected},
		{"something_new", TransferStatusQueued},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			assert.Equal(t, tt.want, mapTransferStatus(tt.remote))
		})
	}
}
