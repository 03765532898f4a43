package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Daskott/kavach/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	signature := Signature("order_1", "pay_1", "secret")

	assert.True(t, VerifySignature("order_1", "pay_1", signature, "secret"))
	assert.False(t, VerifySignature("order_1", "pay_2", signature, "secret"))
	assert.False(t, VerifySignature("order_1", "pay_1", signature, "other"))
	assert.False(t, VerifySignature("order_1", "pay_1", signature, ""))
	assert.False(t, VerifySignature("order_1", "pay_1", "not-hex", "secret"))

	raw := []byte(signature)
	for i := range raw {
		flipped := make([]byte, len(raw))
		copy(flipped, raw)
		if flipped[i] == '0' {
			flipped[i] = '1'
		} else {
			flipped[i] = '0'
		}
		assert.False(t, VerifySignature("order_1", "pay_1", string(flipped), "secret"), "position %d", i)
	}
}

func TestCreateOrder(t *testing.T) {
	var received orderRequest
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "secret", pass)

		require.Nil(t, json.NewDecoder(r.Body).Decode(&received))

		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(Order{
			ID:       "order_abc",
			Amount:   received.Amount,
			Currency: received.Currency,
			Receipt:  received.Receipt,
			Status:   "created",
		})
	}))
	defer server.Close()

	client := NewClient(shared.RazorpayConfig{KeyID: "rzp_test", KeySecret: "secret", BaseURL: server.URL})
	assert.True(t, client.Configured())

	order, err := client.CreateOrder(context.Background(), 9900, "INR", strings.Repeat("r", 60),
		map[string]string{"activation_index": "101"})
	require.Nil(t, err)

	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(9900), order.Amount)
	assert.Len(t, received.Receipt, MAX_RECEIPT_LEN)
	assert.Equal(t, "101", received.Notes["activation_index"])
}

func TestCreateOrderGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusBadRequest)
		rw.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer server.Close()

	client := NewClient(shared.RazorpayConfig{KeyID: "rzp_test", KeySecret: "secret", BaseURL: server.URL})

	_, err := client.CreateOrder(context.Background(), 1, "INR", "r", nil)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestCreateOrderIsNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusServiceUnavailable)
		rw.Write([]byte(`{"error":{"code":"SERVER_ERROR","description":"try again"}}`))
	}))
	defer server.Close()

	client := NewClient(shared.RazorpayConfig{KeyID: "rzp_test", KeySecret: "secret", BaseURL: server.URL})

	_, err := client.CreateOrder(context.Background(), 9900, "INR", "r", nil)
	require.NotNil(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestConfigured(t *testing.T) {
	assert.False(t, NewClient(shared.RazorpayConfig{KeyID: "rzp_test"}).Configured())
}
